package tools

import (
	"context"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

// InvokeFunc is the callable body of a Basic tool.
type InvokeFunc func(ctx context.Context, args map[string]any) (any, error)

// Basic is the plain (unversioned) Tool capability set (spec §9 design
// note: "concrete tools are values implementing that interface").
type Basic struct {
	name        string
	description string
	usage       string
	modalities  []ports.Modality
	invoke      InvokeFunc
}

func NewBasic(name, description, usage string, modalities []ports.Modality, invoke InvokeFunc) *Basic {
	return &Basic{name: name, description: description, usage: usage, modalities: modalities, invoke: invoke}
}

func (b *Basic) Name() string                   { return b.name }
func (b *Basic) Description() string            { return b.description }
func (b *Basic) Usage() string                  { return b.usage }
func (b *Basic) Modalities() []ports.Modality   { return b.modalities }
func (b *Basic) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return b.invoke(ctx, args)
}

// MigrateFunc upgrades a caller's arguments from an older tool version.
type MigrateFunc func(fromVersion string, args any) (map[string]any, error)

// Versioned wraps a Basic tool with version metadata by composition — "an
// is-versioned wrapper around a basic tool" (spec §9 design note), rather
// than deep inheritance.
type Versioned struct {
	*Basic
	version               string
	minCompatibleVersion  string
	status                ports.VersionStatus
	deprecationMessage    string
	migrate               MigrateFunc
}

type VersionedOption func(*Versioned)

func WithDeprecation(message string) VersionedOption {
	return func(v *Versioned) {
		v.status = ports.VersionDeprecated
		v.deprecationMessage = message
	}
}

func WithMigration(fn MigrateFunc) VersionedOption {
	return func(v *Versioned) { v.migrate = fn }
}

func NewVersioned(base *Basic, version, minCompatibleVersion string, status ports.VersionStatus, opts ...VersionedOption) *Versioned {
	v := &Versioned{Basic: base, version: version, minCompatibleVersion: minCompatibleVersion, status: status}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Versioned) Version() string               { return v.version }
func (v *Versioned) MinCompatibleVersion() string   { return v.minCompatibleVersion }
func (v *Versioned) Status() ports.VersionStatus    { return v.status }
func (v *Versioned) DeprecationMessage() string     { return v.deprecationMessage }

// MigrateFrom implements ports.ArgMigrator when a migration function was
// supplied via WithMigration; callers should type-assert for
// ports.ArgMigrator before relying on it (spec §4.3 "migrate_from").
func (v *Versioned) MigrateFrom(fromVersion string, args any) (map[string]any, error) {
	if v.migrate == nil {
		if m, ok := args.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{"value": args}, nil
	}
	return v.migrate(fromVersion, args)
}
