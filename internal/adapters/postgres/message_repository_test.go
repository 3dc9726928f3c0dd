package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestMessageRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MessageRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	msg := models.NewMessage("message_1", "turn_1", "hello there", models.MessageText, "alice", models.ParticipantHuman, now)

	mock.ExpectExec("INSERT INTO dialogue_messages").
		WithArgs(msg.ID, msg.TurnID, msg.Content, msg.Kind, msg.SenderID, msg.Sender, pgxmock.AnyArg(), msg.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, msg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMessageRepository_RecentBySession_OldestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MessageRepository{BaseRepository: BaseRepository{pool: nil}}

	t0 := time.Now()
	t1 := t0.Add(time.Second)

	// The query orders DESC LIMIT k to fetch the most recent rows; the mock
	// returns them in that DESC order and the repository must reverse them.
	rows := pgxmock.NewRows([]string{"id", "turn_id", "content", "kind", "sender_id", "sender_kind", "tags", "timestamp"}).
		AddRow("message_2", "turn_1", "second", string(models.MessageText), "assistant", string(models.ParticipantAI), []byte(`{}`), t1).
		AddRow("message_1", "turn_1", "first", string(models.MessageText), "alice", string(models.ParticipantHuman), []byte(`{}`), t0)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_messages m").
		WithArgs("session_1", 2).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	messages, err := repo.RecentBySession(ctx, "session_1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "message_1" || messages[1].ID != "message_2" {
		t.Errorf("expected oldest-first ordering, got %s then %s", messages[0].ID, messages[1].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMessageRepository_ListByTurn_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &MessageRepository{BaseRepository: BaseRepository{pool: nil}}

	rows := pgxmock.NewRows([]string{"id", "turn_id", "content", "kind", "sender_id", "sender_kind", "tags", "timestamp"})
	mock.ExpectQuery("SELECT (.+) FROM dialogue_messages").
		WithArgs("turn_empty").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	messages, err := repo.ListByTurn(ctx, "turn_empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected 0 messages, got %d", len(messages))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
