package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestMemoryItemRepository_Create_WithEmbedding(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MemoryItemRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	item := models.NewMemoryItem("memory_1", "remembered payload", nil, now)
	item.Embedding = []float32{0.1, 0.2, 0.3}

	mock.ExpectExec("INSERT INTO dialogue_memory_items").
		WithArgs(item.ID, item.Payload, pgxmock.AnyArg(), pgxmock.AnyArg(), item.CreatedAt, item.LastAccessed, item.AccessCount).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, item); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMemoryItemRepository_Get_NilEmbedding(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MemoryItemRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "payload", "tags", "embedding", "created_at", "last_accessed", "access_count"}).
		AddRow("memory_1", "payload", []byte(`{}`), nil, now, now, 0)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_memory_items").
		WithArgs("memory_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	item, err := repo.Get(ctx, "memory_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Embedding != nil {
		t.Errorf("expected nil embedding, got %v", item.Embedding)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMemoryItemRepository_SearchByEmbedding(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MemoryItemRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	vec := pgvector.NewVector([]float32{0.1, 0.2, 0.3})
	rows := pgxmock.NewRows([]string{"id", "payload", "tags", "embedding", "created_at", "last_accessed", "access_count", "similarity"}).
		AddRow("memory_1", "closest match", []byte(`{}`), &vec, now, now, 1, 0.97)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_memory_items").
		WithArgs(pgvector.NewVector([]float32{0.1, 0.2, 0.3}), 5).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	items, sims, err := repo.SearchByEmbedding(ctx, []float32{0.1, 0.2, 0.3}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || len(sims) != 1 {
		t.Fatalf("expected 1 item and 1 similarity, got %d/%d", len(items), len(sims))
	}
	if sims[0] != 0.97 {
		t.Errorf("expected similarity 0.97, got %v", sims[0])
	}
	if len(items[0].Embedding) != 3 {
		t.Errorf("expected embedding to round-trip, got %v", items[0].Embedding)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
