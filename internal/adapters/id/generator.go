// Package id generates prefixed, collision-resistant identifiers for every
// entity kind the core creates, grounded on the teacher's
// internal/adapters/id/generator.go.
package id

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	nid, err := gonanoid.New(21)
	if err != nil {
		// uuid.NewString never errors; it is the fallback of last resort
		// so a nanoid outage still yields a globally unique identifier.
		return prefix + "_" + uuid.NewString()
	}
	return prefix + "_" + nid
}

func (g *Generator) GenerateSessionID() string          { return g.generate("ses") }
func (g *Generator) GenerateTurnID() string              { return g.generate("trn") }
func (g *Generator) GenerateMessageID() string           { return g.generate("msg") }
func (g *Generator) GenerateToolInvocationID() string    { return g.generate("inv") }
func (g *Generator) GenerateMemoryItemID() string        { return g.generate("mem") }
func (g *Generator) GenerateRelationshipID() string      { return g.generate("rel") }
func (g *Generator) GenerateRelationshipTaskID() string  { return g.generate("tsk") }
