package memory

import (
	"context"
	"sync"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

// Manager is the Memory Store's Manager: a name→store registry with one
// designated default, fanning search across every registered store
// (spec §4.1).
type Manager struct {
	mu          sync.RWMutex
	stores      map[string]ports.SimilarityStore
	defaultName string
}

func NewManager() *Manager {
	return &Manager{stores: make(map[string]ports.SimilarityStore)}
}

func (m *Manager) Register(name string, store ports.SimilarityStore, isDefault bool) error {
	if name == "" {
		return domain.NewError(domain.KindInvalidArgument, "memory store name cannot be empty", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[name] = store
	if isDefault || m.defaultName == "" {
		m.defaultName = name
	}
	return nil
}

func (m *Manager) Store(name string) (ports.SimilarityStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	store, ok := m.stores[name]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "memory store not found: "+name, domain.ErrStoreNotFound)
	}
	return store, nil
}

func (m *Manager) Default() (ports.SimilarityStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.defaultName == "" {
		return nil, domain.NewError(domain.KindNotFound, "no default memory store registered", domain.ErrStoreNotFound)
	}
	return m.stores[m.defaultName], nil
}

// SearchAll fans query across every registered store concurrently and
// returns per-store result buckets (spec §4.1).
func (m *Manager) SearchAll(ctx context.Context, query string, k int) (map[string][]ports.SearchResult, error) {
	m.mu.RLock()
	stores := make(map[string]ports.SimilarityStore, len(m.stores))
	for name, store := range m.stores {
		stores[name] = store
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	var resultsMu sync.Mutex
	results := make(map[string][]ports.SearchResult, len(stores))

	for name, store := range stores {
		wg.Add(1)
		go func(name string, store ports.SimilarityStore) {
			defer wg.Done()
			found, err := store.Search(ctx, query, k)
			if err != nil {
				return
			}
			resultsMu.Lock()
			results[name] = found
			resultsMu.Unlock()
		}(name, store)
	}
	wg.Wait()

	return results, nil
}
