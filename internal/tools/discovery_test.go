package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

func TestDiscovery_ScanRegistersFactoryTools(t *testing.T) {
	registry := NewRegistry()
	RegisterPlugin("test-provider", func() []ports.VersionedTool {
		return []ports.VersionedTool{echoTool("discovered", "1.0.0", "1.0.0", ports.VersionActive)}
	})
	defer func() {
		factoryMu.Lock()
		delete(factories, "test-provider")
		factoryMu.Unlock()
	}()

	d := NewDiscovery(registry, nil)
	d.Scan(context.Background())

	found := registry.ListByProvider("test-provider")
	require.Len(t, found, 1)
	assert.Equal(t, "discovered", found[0].Name())
}

func TestDiscovery_ScanForChangesDetectsFileHashChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	scanCount := 0
	registry := NewRegistry()
	RegisterPlugin("watched", func() []ports.VersionedTool {
		scanCount++
		return nil
	})
	defer func() {
		factoryMu.Lock()
		delete(factories, "watched")
		factoryMu.Unlock()
	}()

	d := NewDiscovery(registry, []string{dir})
	d.ScanForChanges(context.Background())
	assert.Equal(t, 1, scanCount, "first pass always scans (no prior hash)")

	d.ScanForChanges(context.Background())
	assert.Equal(t, 1, scanCount, "unchanged file must not trigger a rescan")

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	d.ScanForChanges(context.Background())
	assert.Equal(t, 2, scanCount, "changed file hash must trigger a rescan")
}
