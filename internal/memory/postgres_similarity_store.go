package memory

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

// PostgresSimilarityStore is the Postgres-backed ports.SimilarityStore
// (spec §4.1), trading the in-memory SimilarityStore's bounded eviction
// for durable pgvector-indexed ANN search via the injected
// ports.MemoryItemRepository. Grounded on the same repository the
// Postgres persistence adapter already exposes
// (internal/adapters/postgres/memoryitem_repository.go), wired here as a
// second concrete ports.SimilarityStore a MemoryManager can register
// alongside the in-memory one (spec §4.1 names both "short-term" and
// "long-term" capability, and the DOMAIN STACK calls for pgvector to back
// the durable variant).
type PostgresSimilarityStore struct {
	items    ports.MemoryItemRepository
	embedder ports.EmbeddingService
	idGen    ports.IDGenerator
}

func NewPostgresSimilarityStore(items ports.MemoryItemRepository, embedder ports.EmbeddingService, idGen ports.IDGenerator) *PostgresSimilarityStore {
	return &PostgresSimilarityStore{items: items, embedder: embedder, idGen: idGen}
}

func (s *PostgresSimilarityStore) Add(ctx context.Context, payload string, tags map[string]string) (string, error) {
	if payload == "" {
		return "", domain.NewError(domain.KindInvalidArgument, "memory item payload cannot be empty", nil)
	}

	now := time.Now()
	id := s.idGen.GenerateMemoryItemID()
	item := models.NewMemoryItem(id, payload, tags, now)

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, payload)
		if err != nil {
			log.Printf("[memory.PostgresSimilarityStore.Add] embedding failed, storing without vector: id=%s, error=%v", id, err)
		} else {
			item.Embedding = vec
		}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresSimilarityStore) Get(ctx context.Context, id string) (*models.MemoryItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NewError(domain.KindNotFound, "memory item not found", domain.ErrMemoryItemNotFound)
	}
	item.Accessed(time.Now())
	if err := s.items.Update(ctx, item); err != nil {
		log.Printf("[memory.PostgresSimilarityStore.Get] failed to persist access bookkeeping: id=%s, error=%v", id, err)
	}
	return item, nil
}

func (s *PostgresSimilarityStore) Clear(ctx context.Context) error {
	all, err := s.items.List(ctx)
	if err != nil {
		return err
	}
	for _, item := range all {
		if err := s.items.Delete(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}

// Search embeds query and runs cosine-similarity ANN search when an
// embedder is configured; falls back to a substring scan over every
// stored item otherwise (spec §4.1, same fallback the in-memory store
// uses for items with no stored embedding).
func (s *PostgresSimilarityStore) Search(ctx context.Context, query string, k int) ([]ports.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, query); err == nil {
			items, sims, err := s.items.SearchByEmbedding(ctx, vec, k)
			if err != nil {
				return nil, err
			}
			results := make([]ports.SearchResult, len(items))
			now := time.Now()
			for i, item := range items {
				item.Accessed(now)
				results[i] = ports.SearchResult{Item: item, Similarity: sims[i]}
			}
			return results, nil
		} else {
			log.Printf("[memory.PostgresSimilarityStore.Search] query embedding failed, falling back to substring match: error=%v", err)
		}
	}

	all, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	lowerQuery := strings.ToLower(query)
	var results []ports.SearchResult
	for _, item := range all {
		if strings.Contains(strings.ToLower(item.Payload), lowerQuery) {
			results = append(results, ports.SearchResult{Item: item, Similarity: 0})
			if len(results) >= k {
				break
			}
		}
	}
	return results, nil
}

// Persist/Load implement ports.SimilarityStore's round-trip contract as a
// no-op for this store: Postgres itself is the durable byte store, so
// there is no separate opaque snapshot to move (spec §6 "opaque byte
// stream the store itself defines" — here that stream is the database,
// not a file the process hands back).
func (s *PostgresSimilarityStore) Persist(ctx context.Context) ([]byte, error) {
	return []byte{}, nil
}

func (s *PostgresSimilarityStore) Load(ctx context.Context, data []byte) error {
	return nil
}
