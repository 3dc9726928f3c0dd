package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// MemoryItemRepository is the Postgres-backed ports.MemoryItemRepository,
// grounded on the teacher's MemoryRepository: pgvector-typed embeddings
// column, cosine-distance ("<=>") ordering for similarity search (spec
// §4.1 "embedding-similarity retrieval").
type MemoryItemRepository struct {
	BaseRepository
}

func NewMemoryItemRepository(pool *pgxpool.Pool) *MemoryItemRepository {
	return &MemoryItemRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *MemoryItemRepository) Create(ctx context.Context, item *models.MemoryItem) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return err
	}

	var embedding *pgvector.Vector
	if len(item.Embedding) > 0 {
		v := pgvector.NewVector(item.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO dialogue_memory_items (
			id, payload, tags, embedding, created_at, last_accessed, access_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.conn(ctx).Exec(ctx, query,
		item.ID, item.Payload, tags, embedding, item.CreatedAt, item.LastAccessed, item.AccessCount)
	return err
}

func (r *MemoryItemRepository) Update(ctx context.Context, item *models.MemoryItem) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE dialogue_memory_items
		SET payload = $2, tags = $3, last_accessed = $4, access_count = $5
		WHERE id = $1`

	_, err = r.conn(ctx).Exec(ctx, query, item.ID, item.Payload, tags, item.LastAccessed, item.AccessCount)
	return err
}

func (r *MemoryItemRepository) Get(ctx context.Context, id string) (*models.MemoryItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, payload, tags, embedding, created_at, last_accessed, access_count
		FROM dialogue_memory_items WHERE id = $1`

	return r.scanItem(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *MemoryItemRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM dialogue_memory_items WHERE id = $1`, id)
	return err
}

func (r *MemoryItemRepository) List(ctx context.Context) ([]*models.MemoryItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, payload, tags, embedding, created_at, last_accessed, access_count
		FROM dialogue_memory_items
		ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MemoryItem
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SearchByEmbedding returns up to k items ordered by cosine similarity
// descending (pgvector's "<=>" operator is cosine distance; similarity is
// 1 - distance), matching the teacher's MemoryRepository.SearchMemories.
func (r *MemoryItemRepository) SearchByEmbedding(ctx context.Context, vector []float32, k int) ([]*models.MemoryItem, []float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, payload, tags, embedding, created_at, last_accessed, access_count,
		       1 - (embedding <=> $1) AS similarity
		FROM dialogue_memory_items
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []*models.MemoryItem
	var sims []float64
	for rows.Next() {
		var item models.MemoryItem
		var tags []byte
		var embedding *pgvector.Vector
		var similarity float64

		if err := rows.Scan(&item.ID, &item.Payload, &tags, &embedding,
			&item.CreatedAt, &item.LastAccessed, &item.AccessCount, &similarity); err != nil {
			return nil, nil, err
		}
		if err := unmarshalJSONField(tags, &item.Tags); err != nil {
			return nil, nil, err
		}
		if embedding != nil {
			item.Embedding = embedding.Slice()
		}
		items = append(items, &item)
		sims = append(sims, similarity)
	}
	return items, sims, rows.Err()
}

func (r *MemoryItemRepository) scanItem(row pgx.Row) (*models.MemoryItem, error) {
	var item models.MemoryItem
	var tags []byte
	var embedding *pgvector.Vector

	err := row.Scan(&item.ID, &item.Payload, &tags, &embedding, &item.CreatedAt, &item.LastAccessed, &item.AccessCount)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSONField(tags, &item.Tags); err != nil {
		return nil, err
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}

func scanItemRow(rows pgx.Rows) (*models.MemoryItem, error) {
	var item models.MemoryItem
	var tags []byte
	var embedding *pgvector.Vector

	if err := rows.Scan(&item.ID, &item.Payload, &tags, &embedding, &item.CreatedAt, &item.LastAccessed, &item.AccessCount); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(tags, &item.Tags); err != nil {
		return nil, err
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}
