package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// MessageRepository is the Postgres-backed ports.MessageRepository,
// grounded on the teacher's MessageRepository — same Create/Get/ListByTurn
// shape, plus RecentBySession for spec §4.6 step 3's bounded history read.
type MessageRepository struct {
	BaseRepository
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dialogue_messages (
			id, turn_id, content, kind, sender_id, sender_kind, tags, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.conn(ctx).Exec(ctx, query,
		m.ID, m.TurnID, m.Content, m.Kind, m.SenderID, m.Sender, tags, m.Timestamp)
	return err
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, turn_id, content, kind, sender_id, sender_kind, tags, timestamp
		FROM dialogue_messages WHERE id = $1`

	return r.scanMessage(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *MessageRepository) ListByTurn(ctx context.Context, turnID string) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, turn_id, content, kind, sender_id, sender_kind, tags, timestamp
		FROM dialogue_messages
		WHERE turn_id = $1
		ORDER BY timestamp ASC`

	rows, err := r.conn(ctx).Query(ctx, query, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentBySession fetches the last k messages across every Turn of a
// Session, oldest first, via a join against dialogue_turns (spec §4.6
// step 3: "fetch the last K messages").
func (r *MessageRepository) RecentBySession(ctx context.Context, sessionID string, k int) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT m.id, m.turn_id, m.content, m.kind, m.sender_id, m.sender_kind, m.tags, m.timestamp
		FROM dialogue_messages m
		JOIN dialogue_turns t ON t.id = m.turn_id
		WHERE t.session_id = $1
		ORDER BY m.timestamp DESC
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var tags []byte

	err := row.Scan(&m.ID, &m.TurnID, &m.Content, &m.Kind, &m.SenderID, &m.Sender, &tags, &m.Timestamp)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSONField(tags, &m.Tags); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMessages(rows pgx.Rows) ([]*models.Message, error) {
	var out []*models.Message
	for rows.Next() {
		var m models.Message
		var tags []byte
		if err := rows.Scan(&m.ID, &m.TurnID, &m.Content, &m.Kind, &m.SenderID, &m.Sender, &tags, &m.Timestamp); err != nil {
			return nil, err
		}
		if err := unmarshalJSONField(tags, &m.Tags); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
