package tools

import (
	"github.com/blang/semver/v4"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

// Resolution is the outcome of resolving a tool by name and optional
// requested version (spec §4.3).
type Resolution struct {
	Tool               ports.VersionedTool
	Version            string
	Deprecated         bool
	DeprecationNotice  string
}

// VersionManager resolves tool lookups per spec §4.3's four-step
// algorithm and performs argument migration via ArgMigrator. It holds no
// state of its own beyond a Registry reference — the Registry is the
// single source of truth for versions and defaults.
type VersionManager struct {
	registry *Registry
}

func NewVersionManager(registry *Registry) *VersionManager {
	return &VersionManager{registry: registry}
}

// Resolve implements spec §4.3's version resolution:
//  1. exact requested version, if registered, even if deprecated;
//  2. otherwise the highest registered version V with V >= requested >=
//     V.min_compatible (the compatibility relation of spec §4.3,
//     "version V is compatible with request version R iff V >= R >=
//     V.min_compatible" — read together with the §8 invariant "V.
//     min_compatible <= requested <= V", which is normative over the
//     body text's looser "highest version <= requested" phrasing; see
//     SPEC_FULL.md's Open Question Decisions);
//  3. with no requested version, the explicit default — unless that
//     default is itself deprecated, in which case resolution falls
//     through to the newest non-experimental version, then the newest
//     version overall (spec §8 scenario 4: deprecating the default
//     must not pin resolution to it forever);
//  4. if the chosen version is deprecated, the caller receives a
//     deprecation notice alongside the tool.
func (vm *VersionManager) Resolve(name, requestedVersion string) (*Resolution, error) {
	vm.registry.mu.RLock()
	defer vm.registry.mu.RUnlock()

	byVersion, ok := vm.registry.versions[name]
	if !ok || len(byVersion) == 0 {
		return nil, domain.NewError(domain.KindNotFound, "tool not found: "+name, domain.ErrToolNotFound)
	}

	var chosen string

	switch {
	case requestedVersion != "":
		if _, exists := byVersion[requestedVersion]; exists {
			chosen = requestedVersion
		} else {
			req, err := semver.Parse(requestedVersion)
			if err != nil {
				return nil, domain.NewError(domain.KindInvalidArgument, "requested version is not valid semver: "+requestedVersion, err)
			}
			chosen = highestCompatible(byVersion, req)
			if chosen == "" {
				return nil, domain.NewError(domain.KindIncompatibleVersion, "no compatible version of "+name+" for requested "+requestedVersion, domain.ErrIncompatibleVersion)
			}
		}
	default:
		chosen = vm.registry.defaults[name]
		if chosen == "" || byVersion[chosen] == nil || byVersion[chosen].status == ports.VersionDeprecated {
			chosen = newestVersion(byVersion, vm.registry.versionsOf(name), false)
		}
		if chosen == "" {
			chosen = newestVersion(byVersion, vm.registry.versionsOf(name), true)
		}
		if chosen == "" {
			return nil, domain.NewError(domain.KindNotFound, "no usable version of "+name+" registered", domain.ErrToolNotFound)
		}
	}

	e := byVersion[chosen]
	res := &Resolution{Tool: e.tool, Version: chosen}
	if e.status == ports.VersionDeprecated || e.tool.Status() == ports.VersionDeprecated {
		res.Deprecated = true
		res.DeprecationNotice = e.deprecationNotice
		if res.DeprecationNotice == "" {
			res.DeprecationNotice = e.tool.DeprecationMessage()
		}
	}
	return res, nil
}

// highestCompatible returns the highest version V (as a string) among
// byVersion satisfying V >= requested >= V.min_compatible, or "" if none
// qualifies.
func highestCompatible(byVersion map[string]*entry, requested semver.Version) string {
	var best string
	var bestParsed semver.Version
	for v, e := range byVersion {
		parsed, err := semver.Parse(v)
		if err != nil {
			continue
		}
		minCompat, err := semver.Parse(e.tool.MinCompatibleVersion())
		if err != nil {
			continue
		}
		if parsed.LT(requested) || requested.LT(minCompat) {
			continue
		}
		if best == "" || parsed.GT(bestParsed) {
			best = v
			bestParsed = parsed
		}
	}
	return best
}

// newestVersion returns the newest version string. With strict=false it
// skips experimental and deprecated entries (the "newest non-experimental"
// tier of spec §4.3 step 3's fallback chain, which must also skip a
// deprecated default rather than keep returning it — spec §8 scenario 4);
// with strict=true every registered version is eligible, the last-resort
// "newest overall" tier.
func newestVersion(byVersion map[string]*entry, sortedVersions []string, strict bool) string {
	for i := len(sortedVersions) - 1; i >= 0; i-- {
		v := sortedVersions[i]
		e := byVersion[v]
		if !strict && (e.status == ports.VersionExperimental || e.status == ports.VersionDeprecated) {
			continue
		}
		return v
	}
	return ""
}

// MigrateArgs upgrades args from fromVersion to the resolved tool's
// version via its ArgMigrator, if it implements one; otherwise args pass
// through unchanged (spec §4.3 "Argument migration").
func (vm *VersionManager) MigrateArgs(res *Resolution, fromVersion string, args any) (map[string]any, error) {
	migrator, ok := res.Tool.(ports.ArgMigrator)
	if !ok || fromVersion == "" || fromVersion == res.Version {
		if m, ok := args.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{"value": args}, nil
	}
	return migrator.MigrateFrom(fromVersion, args)
}
