package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestTurnRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TurnRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	turn := models.NewTurn("turn_1", "session_1", 1, "alice", models.ParticipantHuman, "assistant", models.ParticipantAI, now)

	mock.ExpectExec("INSERT INTO dialogue_turns").
		WithArgs(turn.ID, turn.SessionID, turn.Ordinal, turn.InitiatorID, turn.InitiatorKind,
			turn.ResponderID, turn.ResponderKind, turn.Status, pgxmock.AnyArg(), turn.StartTime, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, turn); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTurnRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TurnRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "session_id", "ordinal", "initiator_id", "initiator_kind",
		"responder_id", "responder_kind", "status", "tags", "start_time", "end_time",
	}).AddRow("turn_1", "session_1", 1, "alice", string(models.ParticipantHuman),
		"assistant", string(models.ParticipantAI), string(models.TurnCompleted), []byte(`{}`), now, nil)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_turns").
		WithArgs("turn_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	turn, err := repo.Get(ctx, "turn_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Ordinal != 1 {
		t.Errorf("expected ordinal 1, got %d", turn.Ordinal)
	}
	if turn.EndTime != nil {
		t.Error("expected nil EndTime for an open turn")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTurnRepository_MaxOrdinal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TurnRepository{BaseRepository: BaseRepository{pool: nil}}

	rows := pgxmock.NewRows([]string{"coalesce"}).AddRow(3)
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(ordinal\\), 0\\) FROM dialogue_turns").
		WithArgs("session_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	max, err := repo.MaxOrdinal(ctx, "session_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if max != 3 {
		t.Errorf("expected max ordinal 3, got %d", max)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTurnRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TurnRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	turn := models.NewTurn("turn_1", "session_1", 1, "alice", models.ParticipantHuman, "assistant", models.ParticipantAI, now)
	if err := turn.Start(); err != nil {
		t.Fatal(err)
	}
	if err := turn.Complete(now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("UPDATE dialogue_turns").
		WithArgs(turn.ID, turn.Status, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.Update(ctx, turn); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
