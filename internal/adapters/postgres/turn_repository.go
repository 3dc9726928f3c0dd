package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// TurnRepository is the Postgres-backed ports.TurnRepository. Request and
// response Messages and Tool Invocations are stored in their own tables
// (joined by turn_id), matching the teacher's separation of
// conversation/message repositories rather than embedding children —
// Get returns the Turn's own scalar fields only.
type TurnRepository struct {
	BaseRepository
}

func NewTurnRepository(pool *pgxpool.Pool) *TurnRepository {
	return &TurnRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *TurnRepository) Create(ctx context.Context, t *models.Turn) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dialogue_turns (
			id, session_id, ordinal, initiator_id, initiator_kind,
			responder_id, responder_kind, status, tags, start_time, end_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.conn(ctx).Exec(ctx, query,
		t.ID, t.SessionID, t.Ordinal, t.InitiatorID, t.InitiatorKind,
		t.ResponderID, t.ResponderKind, t.Status, tags, t.StartTime, nullTime(t.EndTime))
	return err
}

func (r *TurnRepository) Get(ctx context.Context, id string) (*models.Turn, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, ordinal, initiator_id, initiator_kind,
		       responder_id, responder_kind, status, tags, start_time, end_time
		FROM dialogue_turns WHERE id = $1`

	return r.scanTurn(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *TurnRepository) Update(ctx context.Context, t *models.Turn) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE dialogue_turns
		SET status = $2, tags = $3, end_time = $4
		WHERE id = $1`

	_, err = r.conn(ctx).Exec(ctx, query, t.ID, t.Status, tags, nullTime(t.EndTime))
	return err
}

func (r *TurnRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM dialogue_turns WHERE id = $1`, id)
	return err
}

func (r *TurnRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, ordinal, initiator_id, initiator_kind,
		       responder_id, responder_kind, status, tags, start_time, end_time
		FROM dialogue_turns
		WHERE session_id = $1
		ORDER BY ordinal ASC`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Turn
	for rows.Next() {
		t, err := scanTurnRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TurnRepository) MaxOrdinal(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var max int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(ordinal), 0) FROM dialogue_turns WHERE session_id = $1`, sessionID,
	).Scan(&max)
	return max, err
}

func (r *TurnRepository) scanTurn(row pgx.Row) (*models.Turn, error) {
	var t models.Turn
	var tags []byte
	var endTime sql.NullTime

	err := row.Scan(&t.ID, &t.SessionID, &t.Ordinal, &t.InitiatorID, &t.InitiatorKind,
		&t.ResponderID, &t.ResponderKind, &t.Status, &tags, &t.StartTime, &endTime)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSONField(tags, &t.Tags); err != nil {
		return nil, err
	}
	t.EndTime = getTimePtr(endTime)
	return &t, nil
}

func scanTurnRow(rows pgx.Rows) (*models.Turn, error) {
	var t models.Turn
	var tags []byte
	var endTime sql.NullTime

	if err := rows.Scan(&t.ID, &t.SessionID, &t.Ordinal, &t.InitiatorID, &t.InitiatorKind,
		&t.ResponderID, &t.ResponderKind, &t.Status, &tags, &t.StartTime, &endTime); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(tags, &t.Tags); err != nil {
		return nil, err
	}
	t.EndTime = getTimePtr(endTime)
	return &t, nil
}
