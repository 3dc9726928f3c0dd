package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	session, err := models.NewSession("session_1", "alice", models.DialogueHumanAIPrivate, []models.Participant{
		{ID: "alice", Kind: models.ParticipantHuman},
		{ID: "assistant", Kind: models.ParticipantAI},
	}, now)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("INSERT INTO dialogue_sessions").
		WithArgs(session.ID, session.OwnerID, session.DialogueKind, pgxmock.AnyArg(), pgxmock.AnyArg(), session.CreatedAt, session.LastActivity).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, session); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "owner_id", "dialogue_kind", "participants", "tags", "created_at", "last_activity"}).
		AddRow("session_1", "alice", string(models.DialogueHumanAIPrivate), []byte(`[{"id":"alice","kind":"human"}]`), []byte(`{}`), now, now)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_sessions").
		WithArgs("session_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	session, err := repo.Get(ctx, "session_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "session_1" {
		t.Errorf("expected ID session_1, got %s", session.ID)
	}
	if len(session.Participants) != 1 {
		t.Errorf("expected 1 participant, got %d", len(session.Participants))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{BaseRepository: BaseRepository{pool: nil}}

	rows := pgxmock.NewRows([]string{"id", "owner_id", "dialogue_kind", "participants", "tags", "created_at", "last_activity"})
	mock.ExpectQuery("SELECT (.+) FROM dialogue_sessions").
		WithArgs("nonexistent").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	session, err := repo.Get(ctx, "nonexistent")
	if err != nil {
		t.Errorf("expected nil error for missing row, got %v", err)
	}
	if session != nil {
		t.Error("expected nil session for missing row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSessionRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SessionRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	session, err := models.NewSession("session_1", "alice", models.DialogueHumanAIPrivate, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	session.Touch(now.Add(time.Minute))

	mock.ExpectExec("UPDATE dialogue_sessions").
		WithArgs(session.ID, pgxmock.AnyArg(), session.LastActivity).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.Update(ctx, session); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
