package ports

import "context"

// Modality is a declared input/output shape a Tool accepts (spec §4.3).
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityVideo Modality = "video"
	ModalityFile  Modality = "file"
	ModalityMixed Modality = "mixed"
)

// VersionStatus tracks a tool version's lifecycle (spec §4.3), grounded on
// tool_versioning.py's VersionStatus.
type VersionStatus string

const (
	VersionActive     VersionStatus = "active"
	VersionDeprecated VersionStatus = "deprecated"
	VersionExperimental VersionStatus = "experimental"
	VersionStable     VersionStatus = "stable"
	VersionLegacy     VersionStatus = "legacy"
)

// Tool is the capability set every callable tool implements (spec §9
// design note: "interfaces with a capability set {name, describe, invoke,
// optionally modalities, optionally versioning metadata}").
type Tool interface {
	Name() string
	Description() string
	Usage() string
	Modalities() []Modality
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// VersionedTool is a Tool that additionally declares version metadata.
// Concrete tools implement this by composition: an "is-versioned" wrapper
// around a basic Tool (spec §9 design note), not by deep inheritance.
type VersionedTool interface {
	Tool
	Version() string
	MinCompatibleVersion() string
	Status() VersionStatus
	DeprecationMessage() string
}

// ArgMigrator is implemented by a VersionedTool that can upgrade a caller's
// arguments from an older version (spec §4.3 "migrate_from").
type ArgMigrator interface {
	MigrateFrom(fromVersion string, args any) (map[string]any, error)
}
