package memory

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

// SimilarityStore is an in-memory, capacity-bounded ports.SimilarityStore.
// Eviction removes the minimum-importance item when full (spec §4.1:
// importance = α·access_count + β·recency, α=0.7, β=0.3).
type SimilarityStore struct {
	mu         sync.RWMutex
	capacity   int
	items      map[string]*models.MemoryItem
	embedder   ports.EmbeddingService // nil disables embedding, falls back to substring search
	idGen      ports.IDGenerator
}

func NewSimilarityStore(capacity int, embedder ports.EmbeddingService, idGen ports.IDGenerator) *SimilarityStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &SimilarityStore{
		capacity: capacity,
		items:    make(map[string]*models.MemoryItem),
		embedder: embedder,
		idGen:    idGen,
	}
}

// Add stores payload, synchronously computing and attaching an embedding
// when an embedding provider is configured. Embedding failures are logged
// and the item is stored without an embedding, so Search falls back to
// substring match for that item (spec §4.1).
func (s *SimilarityStore) Add(ctx context.Context, payload string, tags map[string]string) (string, error) {
	if payload == "" {
		return "", domain.NewError(domain.KindInvalidArgument, "memory item payload cannot be empty", nil)
	}

	now := time.Now()
	id := s.idGen.GenerateMemoryItemID()
	item := models.NewMemoryItem(id, payload, tags, now)

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, payload)
		if err != nil {
			log.Printf("[memory.SimilarityStore.Add] embedding failed, storing without vector: id=%s, error=%v", id, err)
		} else {
			item.Embedding = vec
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item
	s.evictIfOverCapacityLocked(now)
	return id, nil
}

func (s *SimilarityStore) Get(ctx context.Context, id string) (*models.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "memory item not found", domain.ErrMemoryItemNotFound)
	}
	item.Accessed(time.Now())
	return item, nil
}

func (s *SimilarityStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*models.MemoryItem)
	return nil
}

// Search returns up to k items by cosine similarity when embeddings are
// available for both the query and the candidate; items with no stored
// embedding are matched by substring instead (similarity reported as 0,
// spec §4.1). Ties are broken by recency (most-recently-accessed first).
func (s *SimilarityStore) Search(ctx context.Context, query string, k int) ([]ports.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	var queryVec []float32
	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, query); err == nil {
			queryVec = vec
		} else {
			log.Printf("[memory.SimilarityStore.Search] query embedding failed, falling back to substring match: error=%v", err)
		}
	}

	s.mu.RLock()
	results := make([]ports.SearchResult, 0, len(s.items))
	lowerQuery := strings.ToLower(query)
	for _, item := range s.items {
		if queryVec != nil && len(item.Embedding) == len(queryVec) {
			results = append(results, ports.SearchResult{Item: item, Similarity: cosineSimilarity(queryVec, item.Embedding)})
			continue
		}
		if strings.Contains(strings.ToLower(item.Payload), lowerQuery) {
			results = append(results, ports.SearchResult{Item: item, Similarity: 0})
		}
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Item.LastAccessed.After(results[j].Item.LastAccessed)
	})

	if len(results) > k {
		results = results[:k]
	}

	s.mu.Lock()
	now := time.Now()
	for _, r := range results {
		r.Item.Accessed(now)
	}
	s.mu.Unlock()

	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// evictIfOverCapacityLocked removes the minimum-importance item once the
// store exceeds capacity. Caller must hold s.mu.
func (s *SimilarityStore) evictIfOverCapacityLocked(now time.Time) {
	if len(s.items) <= s.capacity {
		return
	}

	horizon := time.Duration(0)
	for _, item := range s.items {
		if age := now.Sub(item.LastAccessed); age > horizon {
			horizon = age
		}
	}

	var worstID string
	var worstScore float64
	var worstRecency time.Time
	first := true
	for id, item := range s.items {
		score := item.Importance(now, horizon)
		if first || score < worstScore || (score == worstScore && item.LastAccessed.Before(worstRecency)) {
			worstID = id
			worstScore = score
			worstRecency = item.LastAccessed
			first = false
		}
	}
	if worstID != "" {
		delete(s.items, worstID)
	}
}

// snapshotItem is the msgpack-serializable shape of a persisted MemoryItem.
type snapshotItem struct {
	ID           string
	Payload      string
	Tags         map[string]string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	Embedding    []float32
}

// Persist serializes every held item as an opaque msgpack byte stream
// (spec §6: "Memory stores persist as an opaque byte stream the store
// itself defines").
func (s *SimilarityStore) Persist(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	snapshot := make([]snapshotItem, 0, len(s.items))
	for _, item := range s.items {
		snapshot = append(snapshot, snapshotItem{
			ID:           item.ID,
			Payload:      item.Payload,
			Tags:         item.Tags,
			CreatedAt:    item.CreatedAt,
			LastAccessed: item.LastAccessed,
			AccessCount:  item.AccessCount,
			Embedding:    item.Embedding,
		})
	}
	s.mu.RUnlock()

	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, "failed to serialize memory snapshot", err)
	}
	return data, nil
}

// Load replaces the held item set from a byte stream produced by Persist.
// Round-trip load yields equal-by-id items (spec §8 round-trip law).
func (s *SimilarityStore) Load(ctx context.Context, data []byte) error {
	var snapshot []snapshotItem
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return domain.NewError(domain.KindInvalidArgument, "failed to decode memory snapshot", err)
	}

	items := make(map[string]*models.MemoryItem, len(snapshot))
	for _, si := range snapshot {
		items[si.ID] = &models.MemoryItem{
			ID:           si.ID,
			Payload:      si.Payload,
			Tags:         si.Tags,
			CreatedAt:    si.CreatedAt,
			LastAccessed: si.LastAccessed,
			AccessCount:  si.AccessCount,
			Embedding:    si.Embedding,
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}
