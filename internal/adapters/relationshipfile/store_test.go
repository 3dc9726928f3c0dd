package relationshipfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

func TestRecordStore_SaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relationships.json")

	store, err := NewRecordStore(path)
	if err != nil {
		t.Fatalf("NewRecordStore() error = %v", err)
	}

	now := time.Now().Truncate(time.Second)
	record := models.NewRecord("rel_1",
		models.EntityRef{ID: "alice", Kind: models.ParticipantHuman},
		models.EntityRef{ID: "assistant", Kind: models.ParticipantAI},
		now)
	record.TotalInteractionRounds = 5
	record.EmotionalResonance = 2
	record.Collaboration = models.Collaboration{Diary: 1, CoCreation: 2, GiftCount: 1}
	record.AffectionScore = 10

	ctx := context.Background()
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reloaded, err := NewRecordStore(path)
	if err != nil {
		t.Fatalf("reload NewRecordStore() error = %v", err)
	}

	got, err := reloaded.FindByPair(ctx, "alice", "assistant")
	if err != nil {
		t.Fatalf("FindByPair() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected record to survive a reload")
	}
	if got.TotalInteractionRounds != 5 {
		t.Errorf("expected 5 interaction rounds, got %d", got.TotalInteractionRounds)
	}
	if got.Collaboration.GiftCount != 1 {
		t.Errorf("expected gift count 1, got %d", got.Collaboration.GiftCount)
	}

	// Symmetric lookup must also work in the reversed order.
	reversed, err := reloaded.FindByPair(ctx, "assistant", "alice")
	if err != nil {
		t.Fatalf("FindByPair() reversed error = %v", err)
	}
	if reversed == nil || reversed.ID != "rel_1" {
		t.Error("expected symmetric pair lookup to find the same record")
	}
}

func TestRecordStore_MissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.json")

	store, err := NewRecordStore(path)
	if err != nil {
		t.Fatalf("NewRecordStore() error = %v", err)
	}

	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records from a missing file, got %d", len(records))
	}
}

func TestTaskStore_SaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	store, err := NewTaskStore(path)
	if err != nil {
		t.Fatalf("NewTaskStore() error = %v", err)
	}

	now := time.Now().Truncate(time.Second)
	task := models.NewRelationshipTask("task_1", "rel_1", "check_in", "Check in", "say hello", 3, now, nil)

	ctx := context.Background()
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reloaded, err := NewTaskStore(path)
	if err != nil {
		t.Fatalf("reload NewTaskStore() error = %v", err)
	}

	tasks, err := reloaded.ListExecutable(ctx)
	if err != nil {
		t.Fatalf("ListExecutable() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task_1" {
		t.Fatalf("expected the pending task to survive a reload, got %v", tasks)
	}

	tasks[0].Complete(now.Add(time.Minute))
	if err := store.Update(ctx, tasks[0]); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	afterComplete, err := store.ListExecutable(ctx)
	if err != nil {
		t.Fatalf("ListExecutable() after complete error = %v", err)
	}
	if len(afterComplete) != 0 {
		t.Errorf("expected no executable tasks once completed, got %d", len(afterComplete))
	}
}
