package builtin

import (
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/tools"
)

// RegisterAll registers every built-in tool with registry under the
// "builtin" provider label, mirroring the teacher's
// RegisterAllBuiltinTools call order (calculator first, memory-backed
// tools only when a memory manager is available).
func RegisterAll(registry *tools.Registry, memory ports.MemoryManager) error {
	if err := registry.Register(NewCalculator(), "builtin", ports.VersionStable, true); err != nil {
		return err
	}
	if err := registry.Register(NewCalculatorV2(), "builtin", ports.VersionExperimental, false); err != nil {
		return err
	}
	if memory != nil {
		if err := registry.Register(NewMemoryQuery(memory), "builtin", ports.VersionStable, true); err != nil {
			return err
		}
	}
	return nil
}
