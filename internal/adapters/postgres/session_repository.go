package postgres

import (
	"encoding/json"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// SessionRepository is the Postgres-backed ports.SessionRepository.
type SessionRepository struct {
	BaseRepository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	participants, err := json.Marshal(s.Participants)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dialogue_sessions (
			id, owner_id, dialogue_kind, participants, tags, created_at, last_activity
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.conn(ctx).Exec(ctx, query,
		s.ID, s.OwnerID, s.DialogueKind, participants, tags, s.CreatedAt, s.LastActivity)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, owner_id, dialogue_kind, participants, tags, created_at, last_activity
		FROM dialogue_sessions WHERE id = $1`

	return r.scanSession(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE dialogue_sessions
		SET tags = $2, last_activity = $3
		WHERE id = $1`

	_, err = r.conn(ctx).Exec(ctx, query, s.ID, tags, s.LastActivity)
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM dialogue_sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, owner_id, dialogue_kind, participants, tags, created_at, last_activity
		FROM dialogue_sessions
		WHERE owner_id = $1
		ORDER BY last_activity DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepository) scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var participants, tags []byte

	err := row.Scan(&s.ID, &s.OwnerID, &s.DialogueKind, &participants, &tags, &s.CreatedAt, &s.LastActivity)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSONField(participants, &s.Participants); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(tags, &s.Tags); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSessionRow(rows pgx.Rows) (*models.Session, error) {
	var s models.Session
	var participants, tags []byte

	if err := rows.Scan(&s.ID, &s.OwnerID, &s.DialogueKind, &participants, &tags, &s.CreatedAt, &s.LastActivity); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(participants, &s.Participants); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(tags, &s.Tags); err != nil {
		return nil, err
	}
	return &s, nil
}
