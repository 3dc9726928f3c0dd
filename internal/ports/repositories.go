// Package ports declares the interfaces the orchestration core consumes
// (Persistence, Model, Embedding) and produces (none beyond the Dialogue
// Manager's process() entry point, which lives in package dialogue).
package ports

import (
	"context"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// TransactionManager runs fn inside a persistence transaction, committing on
// nil error and rolling back otherwise. Nested calls execute fn directly.
// Grounded on the teacher's postgres.TransactionManager.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator issues prefixed, collision-resistant identifiers for every
// entity kind the core creates.
type IDGenerator interface {
	GenerateSessionID() string
	GenerateTurnID() string
	GenerateMessageID() string
	GenerateToolInvocationID() string
	GenerateMemoryItemID() string
	GenerateRelationshipID() string
	GenerateRelationshipTaskID() string
}

// SessionRepository is the Persistence Interface's CRUD surface for
// Sessions (spec §6), plus list-by-owner with pagination.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Session, error)
}

// TurnRepository is the Persistence Interface's CRUD surface for Turns,
// plus list-by-parent (session).
type TurnRepository interface {
	Create(ctx context.Context, t *models.Turn) error
	Get(ctx context.Context, id string) (*models.Turn, error)
	Update(ctx context.Context, t *models.Turn) error
	Delete(ctx context.Context, id string) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.Turn, error)
	MaxOrdinal(ctx context.Context, sessionID string) (int, error)
}

// MessageRepository is the Persistence Interface's CRUD surface for
// Messages, plus list-by-parent (turn) and a bounded recent-history read
// scoped to a session (spec §4.6 step 3: "fetch the last K messages").
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	ListByTurn(ctx context.Context, turnID string) ([]*models.Message, error)
	RecentBySession(ctx context.Context, sessionID string, k int) ([]*models.Message, error)
}

// ToolInvocationRepository is the Persistence Interface's CRUD surface for
// Tool Invocations, plus list-by-parent (turn).
type ToolInvocationRepository interface {
	Create(ctx context.Context, inv *models.ToolInvocation) error
	Update(ctx context.Context, inv *models.ToolInvocation) error
	Get(ctx context.Context, id string) (*models.ToolInvocation, error)
	ListByTurn(ctx context.Context, turnID string) ([]*models.ToolInvocation, error)
}

// MemoryItemRepository is the Persistence Interface's CRUD surface for
// long-term Memory Items (spec §4.1).
type MemoryItemRepository interface {
	Create(ctx context.Context, item *models.MemoryItem) error
	Update(ctx context.Context, item *models.MemoryItem) error
	Get(ctx context.Context, id string) (*models.MemoryItem, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.MemoryItem, error)
	// SearchByEmbedding returns up to k items ordered by cosine similarity
	// descending, annotated via the returned similarity slice (same index).
	SearchByEmbedding(ctx context.Context, vector []float32, k int) ([]*models.MemoryItem, []float64, error)
}

// RelationshipRepository is the Persistence Interface's CRUD surface for
// Relationship Records, with symmetric pair lookup (spec §3).
type RelationshipRepository interface {
	Create(ctx context.Context, r *models.Record) error
	Update(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	FindByPair(ctx context.Context, aID, bID string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
}

// RelationshipTaskRepository is the Persistence Interface's CRUD surface
// for Relationship Tasks, plus list-by-parent (relationship record).
type RelationshipTaskRepository interface {
	Create(ctx context.Context, t *models.RelationshipTask) error
	Update(ctx context.Context, t *models.RelationshipTask) error
	Get(ctx context.Context, id string) (*models.RelationshipTask, error)
	ListByRelationship(ctx context.Context, relationshipID string) ([]*models.RelationshipTask, error)
	ListExecutable(ctx context.Context) ([]*models.RelationshipTask, error)
}
