package builtin

import (
	"context"
	"fmt"

	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/tools"
)

// NewMemoryQuery wraps a ports.MemoryManager's default store as a tool the
// Invoker can call mid-turn, grounded on the teacher's
// RegisterMemoryQuery (same idea — expose the long-term memory search
// surface as a callable tool — generalized to this engine's
// ports.MemoryManager fan-out instead of a single repository+embedder
// pair).
func NewMemoryQuery(memory ports.MemoryManager) *tools.Versioned {
	base := tools.NewBasic(
		"memory_query",
		"Searches the assistant's long-term memory for items relevant to a query.",
		"memory_query(query: string, k: int)",
		[]ports.Modality{ports.ModalityText},
		func(ctx context.Context, args map[string]any) (any, error) {
			query, ok := args["query"].(string)
			if !ok || query == "" {
				return nil, fmt.Errorf("query must be a non-empty string")
			}
			k := 5
			if v, ok := args["k"].(int); ok && v > 0 {
				k = v
			}
			buckets, err := memory.SearchAll(ctx, query, k)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0)
			for store, results := range buckets {
				for _, r := range results {
					out = append(out, map[string]any{
						"store":      store,
						"payload":    r.Item.Payload,
						"similarity": r.Similarity,
					})
				}
			}
			return map[string]any{"matches": out}, nil
		},
	)
	return tools.NewVersioned(base, "1.0.0", "1.0.0", ports.VersionStable)
}
