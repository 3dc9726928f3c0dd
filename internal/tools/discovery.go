package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

// Factory builds the tool set a plugin contributes. Plugins register one
// at package-init time (spec §9 design note: reflective class-loading
// discovery is replaced, in a strictly-typed rewrite, by "a compile-time
// plugin registry (linker-time init)"). The provider label a plugin
// registers under is the key a Discovery rescan uses to atomically
// replace that plugin's tools in the Registry.
type Factory func() []ports.VersionedTool

var (
	factoryMu sync.Mutex
	factories = map[string]Factory{}
)

// RegisterPlugin is called from a plugin package's init() to contribute a
// tool factory under a provider label. Mirrors rainbow_agent/tools/
// tool_discovery.py's register_tool_class, reified at compile time instead
// of via reflective class scanning.
func RegisterPlugin(provider string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[provider] = factory
}

// Discovery watches a set of filesystem roots for change and re-runs every
// registered plugin factory on change, replacing each provider's tools in
// the Registry atomically. The filesystem content itself carries no code
// to load (Go has no reflective module loader) — hashing the roots is
// preserved as the change-detection signal per spec §9's design note, and
// drives a rescan of the compile-time factory set rather than a reflective
// class load (spec §4.3 "Dynamic discovery").
type Discovery struct {
	registry *Registry
	paths    []string

	mu     sync.Mutex
	hashes map[string]string
}

func NewDiscovery(registry *Registry, paths []string) *Discovery {
	return &Discovery{
		registry: registry,
		paths:    paths,
		hashes:   make(map[string]string),
	}
}

// Scan runs every registered plugin factory unconditionally and replaces
// each provider's tools in the Registry. Used as the manual scan entry
// point (spec §4.3) and as the initial load before the watcher starts.
func (d *Discovery) Scan(ctx context.Context) {
	factoryMu.Lock()
	snapshot := make(map[string]Factory, len(factories))
	for provider, f := range factories {
		snapshot[provider] = f
	}
	factoryMu.Unlock()

	for provider, factory := range snapshot {
		select {
		case <-ctx.Done():
			return
		default:
		}
		tools := factory()
		d.registry.replaceProvider(provider, tools)
	}
}

// ScanForChanges hashes every file under the configured discovery paths;
// if any hash differs from the last observed value, it runs a full Scan.
// Per-file hashing failures are logged and do not abort the pass (spec
// §4.3 "Discovery failures for a single file are logged and do not abort
// the scan").
func (d *Discovery) ScanForChanges(ctx context.Context) {
	changed := false

	d.mu.Lock()
	for _, root := range d.paths {
		_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				log.Printf("tools: discovery walk error at %s: %v", path, err)
				return nil
			}
			if entry.IsDir() || strings.HasPrefix(entry.Name(), "__") {
				return nil
			}
			h, err := hashFile(path)
			if err != nil {
				log.Printf("tools: discovery hash error at %s: %v", path, err)
				return nil
			}
			if prev, ok := d.hashes[path]; !ok || prev != h {
				changed = true
			}
			d.hashes[path] = h
			return nil
		})
	}
	d.mu.Unlock()

	if changed {
		d.Scan(ctx)
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Watch runs ScanForChanges on every fsnotify event under the discovery
// paths plus a periodic fallback tick, until ctx is cancelled. Both
// triggers funnel through the same hash-gated rescan so a burst of
// filesystem events still yields one atomic Registry swap.
func (d *Discovery) Watch(ctx context.Context, autoscanInterval time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range d.paths {
		if err := watcher.Add(root); err != nil {
			log.Printf("tools: discovery watch error for %s: %v", root, err)
		}
	}

	var ticker *time.Ticker
	var tick <-chan time.Time
	if autoscanInterval > 0 {
		ticker = time.NewTicker(autoscanInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("tools: discovery watcher error: %v", err)
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			d.ScanForChanges(ctx)
		case <-tick:
			d.ScanForChanges(ctx)
		}
	}
}
