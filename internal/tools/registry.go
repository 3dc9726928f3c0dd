// Package tools implements the Tool Registry (C3): a name+version catalog
// of callable tools, with version resolution/migration and filesystem
// discovery, grounded on rainbow_agent/tools/{tool_discovery,
// tool_versioning}.py's registry+version-manager split (spec §4.3).
package tools

import (
	"sort"
	"sync"

	"github.com/blang/semver/v4"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

type entry struct {
	tool              ports.VersionedTool
	status            ports.VersionStatus
	provider          string
	deprecationNotice string
}

// Registry catalogs VersionedTools by name and version (spec §4.3). It
// replaces the teacher's singleton ToolRegistry/ToolVersionManager with an
// explicitly-constructed service (spec §9 design note: singletons become
// DI'd services).
type Registry struct {
	mu       sync.RWMutex
	versions map[string]map[string]*entry // name -> version -> entry
	defaults map[string]string            // name -> default version
}

func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[string]map[string]*entry),
		defaults: make(map[string]string),
	}
}

// Register adds a tool version under a provider label. Name+version pairs
// must be unique (spec §4.3).
func (r *Registry) Register(tool ports.VersionedTool, provider string, status ports.VersionStatus, isDefault bool) error {
	if tool == nil || tool.Name() == "" {
		return domain.NewError(domain.KindInvalidArgument, "tool must have a name", nil)
	}
	version := tool.Version()
	if _, err := semver.Parse(version); err != nil {
		return domain.NewError(domain.KindInvalidArgument, "tool version is not valid semver: "+version, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion, ok := r.versions[tool.Name()]
	if !ok {
		byVersion = make(map[string]*entry)
		r.versions[tool.Name()] = byVersion
	}
	if _, exists := byVersion[version]; exists {
		return domain.NewError(domain.KindInvalidArgument, "tool "+tool.Name()+" version "+version+" already registered", nil)
	}
	byVersion[version] = &entry{tool: tool, status: status, provider: provider}

	if isDefault || r.defaults[tool.Name()] == "" {
		r.defaults[tool.Name()] = version
	}
	return nil
}

// replaceProvider atomically swaps every entry registered under provider
// for name with a fresh set, used by Discovery rescans (spec §4.3: "a
// rescan must be atomic; observers see either the pre-scan or post-scan
// catalog, never a partial state").
func (r *Registry) replaceProvider(provider string, tools []ports.VersionedTool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, byVersion := range r.versions {
		for version, e := range byVersion {
			if e.provider == provider {
				delete(byVersion, version)
				if r.defaults[name] == version {
					delete(r.defaults, name)
				}
			}
		}
		if len(byVersion) == 0 {
			delete(r.versions, name)
		}
	}

	for _, tool := range tools {
		byVersion, ok := r.versions[tool.Name()]
		if !ok {
			byVersion = make(map[string]*entry)
			r.versions[tool.Name()] = byVersion
		}
		byVersion[tool.Version()] = &entry{tool: tool, status: tool.Status(), provider: provider}
		if r.defaults[tool.Name()] == "" {
			r.defaults[tool.Name()] = tool.Version()
		}
	}
}

// versionsOf returns every registered version string for name, sorted
// ascending by semver.
func (r *Registry) versionsOf(name string) []string {
	byVersion, ok := r.versions[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(byVersion))
	for v := range byVersion {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, _ := semver.Parse(out[i])
		vj, _ := semver.Parse(out[j])
		return vi.LT(vj)
	})
	return out
}

// List returns every registered tool across all names and versions.
func (r *Registry) List() []ports.VersionedTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ports.VersionedTool
	for _, byVersion := range r.versions {
		for _, e := range byVersion {
			out = append(out, e.tool)
		}
	}
	return out
}

// ListByProvider returns every registered tool under the given provider
// label.
func (r *Registry) ListByProvider(provider string) []ports.VersionedTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ports.VersionedTool
	for _, byVersion := range r.versions {
		for _, e := range byVersion {
			if e.provider == provider {
				out = append(out, e.tool)
			}
		}
	}
	return out
}

// Deprecate marks a registered version deprecated (spec §4.3's Version
// Manager status tracking).
func (r *Registry) Deprecate(name, version, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byVersion, ok := r.versions[name]
	if !ok {
		return domain.NewError(domain.KindNotFound, "tool not found: "+name, domain.ErrToolNotFound)
	}
	e, ok := byVersion[version]
	if !ok {
		return domain.NewError(domain.KindNotFound, "tool version not found: "+name+"@"+version, domain.ErrToolNotFound)
	}
	e.status = ports.VersionDeprecated
	e.deprecationNotice = message
	return nil
}
