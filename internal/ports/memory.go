package ports

import (
	"context"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// ConversationBuffer is the Memory Store's short-term capability (spec
// §4.1): an ordered, per-conversation sequence of Messages.
type ConversationBuffer interface {
	Append(ctx context.Context, conversationID string, msg *models.Message) error
	Recent(ctx context.Context, conversationID string, k int) ([]*models.Message, error)
	All(ctx context.Context, conversationID string) ([]*models.Message, error)
	Clear(ctx context.Context, conversationID string) error
	// TrimToRounds drops the oldest non-system messages until at most
	// maxRounds*2 non-system messages remain, always keeping system-role
	// messages.
	TrimToRounds(ctx context.Context, conversationID string, maxRounds int) error
}

// SearchResult pairs a MemoryItem with its similarity in [-1,1] (spec
// §4.1). Substring-fallback matches report similarity 0.
type SearchResult struct {
	Item       *models.MemoryItem
	Similarity float64
}

// SimilarityStore is the Memory Store's long-term capability (spec §4.1):
// polymorphic over the capability set {add, get, search, clear}.
type SimilarityStore interface {
	Add(ctx context.Context, payload string, tags map[string]string) (string, error)
	Get(ctx context.Context, id string) (*models.MemoryItem, error)
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
	Clear(ctx context.Context) error
	// Persist/Load round-trip an opaque byte stream the store itself
	// defines (spec §6).
	Persist(ctx context.Context) ([]byte, error)
	Load(ctx context.Context, data []byte) error
}

// MemoryManager fans a search across every registered store and returns
// per-store result buckets (spec §4.1).
type MemoryManager interface {
	Register(name string, store SimilarityStore, isDefault bool) error
	Store(name string) (SimilarityStore, error)
	Default() (SimilarityStore, error)
	SearchAll(ctx context.Context, query string, k int) (map[string][]SearchResult, error)
}
