package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestToolInvocationRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ToolInvocationRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	inv := models.NewToolInvocation("invocation_1", "turn_1", "loop_echo", "v1", map[string]any{"utterance": "hi"}, now)

	mock.ExpectExec("INSERT INTO dialogue_tool_invocations").
		WithArgs(inv.ID, inv.TurnID, inv.ToolName, inv.ToolVersion, pgxmock.AnyArg(), pgxmock.AnyArg(),
			inv.Status, pgxmock.AnyArg(), inv.CreatedAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, inv); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestToolInvocationRepository_ListByTurn_DecodesStructuredResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ToolInvocationRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "turn_id", "tool_name", "tool_version", "args", "result", "status",
		"error_desc", "created_at", "completed_at",
	}).AddRow("invocation_1", "turn_1", "loop_echo", "v1", []byte(`{"utterance":"hi"}`),
		[]byte(`{"diary":1,"gift":2}`), string(models.InvocationCompleted), nil, now, now)

	mock.ExpectQuery("SELECT (.+) FROM dialogue_tool_invocations").
		WithArgs("turn_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	invocations, err := repo.ListByTurn(ctx, "turn_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(invocations))
	}

	result, ok := invocations[0].Result.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded result to be a map, got %T", invocations[0].Result)
	}
	if result["diary"].(float64) != 1 {
		t.Errorf("expected diary=1, got %v", result["diary"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestToolInvocationRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ToolInvocationRepository{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	inv := models.NewToolInvocation("invocation_1", "turn_1", "loop_echo", "v1", nil, now)
	if err := inv.Start(); err != nil {
		t.Fatal(err)
	}
	inv.Complete("echo", now.Add(time.Second))

	mock.ExpectExec("UPDATE dialogue_tool_invocations").
		WithArgs(inv.ID, pgxmock.AnyArg(), inv.Status, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.Update(ctx, inv); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
