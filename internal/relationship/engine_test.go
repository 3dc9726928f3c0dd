package relationship

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

type fakeRelRepo struct {
	byID   map[string]*models.Record
	nextID int
}

func newFakeRelRepo() *fakeRelRepo { return &fakeRelRepo{byID: map[string]*models.Record{}} }

func (f *fakeRelRepo) Create(ctx context.Context, r *models.Record) error { f.byID[r.ID] = r; return nil }
func (f *fakeRelRepo) Update(ctx context.Context, r *models.Record) error { f.byID[r.ID] = r; return nil }
func (f *fakeRelRepo) Get(ctx context.Context, id string) (*models.Record, error) {
	return f.byID[id], nil
}
func (f *fakeRelRepo) FindByPair(ctx context.Context, aID, bID string) (*models.Record, error) {
	for _, r := range f.byID {
		if r.Involves(aID, bID) {
			return r, nil
		}
	}
	return nil, nil
}
func (f *fakeRelRepo) List(ctx context.Context) ([]*models.Record, error) {
	out := make([]*models.Record, 0, len(f.byID))
	for _, r := range f.byID {
		out = append(out, r)
	}
	return out, nil
}

type fakeTaskRepo struct {
	byID map[string]*models.RelationshipTask
}

func newFakeTaskRepo() *fakeTaskRepo { return &fakeTaskRepo{byID: map[string]*models.RelationshipTask{}} }

func (f *fakeTaskRepo) Create(ctx context.Context, t *models.RelationshipTask) error {
	f.byID[t.ID] = t
	return nil
}
func (f *fakeTaskRepo) Update(ctx context.Context, t *models.RelationshipTask) error {
	f.byID[t.ID] = t
	return nil
}
func (f *fakeTaskRepo) Get(ctx context.Context, id string) (*models.RelationshipTask, error) {
	return f.byID[id], nil
}
func (f *fakeTaskRepo) ListByRelationship(ctx context.Context, relationshipID string) ([]*models.RelationshipTask, error) {
	var out []*models.RelationshipTask
	for _, t := range f.byID {
		if t.RelationshipID == relationshipID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTaskRepo) ListExecutable(ctx context.Context) ([]*models.RelationshipTask, error) {
	var out []*models.RelationshipTask
	for _, t := range f.byID {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out, nil
}

type seqIDs struct{ n int }

func (s *seqIDs) next() string { s.n++; return "rel-" + itoa(s.n) }
func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}

func (s *seqIDs) GenerateSessionID() string          { return s.next() }
func (s *seqIDs) GenerateTurnID() string             { return s.next() }
func (s *seqIDs) GenerateMessageID() string          { return s.next() }
func (s *seqIDs) GenerateToolInvocationID() string   { return s.next() }
func (s *seqIDs) GenerateMemoryItemID() string       { return s.next() }
func (s *seqIDs) GenerateRelationshipID() string     { return s.next() }
func (s *seqIDs) GenerateRelationshipTaskID() string { return s.next() }

func TestEngine_ObserveCreatesRecordOnFirstInteraction(t *testing.T) {
	e := NewEngine(newFakeRelRepo(), newFakeTaskRepo(), &seqIDs{})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r, err := e.Observe(context.Background(), Update{SenderID: "u1", SenderKind: models.ParticipantHuman, ReceiverID: "ai", ReceiverKind: models.ParticipantAI}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalInteractionRounds)
	assert.True(t, r.Involves("u1", "ai"))
	assert.True(t, r.Involves("ai", "u1"))
}

func TestEngine_ObserveIsSymmetricLookup(t *testing.T) {
	e := NewEngine(newFakeRelRepo(), newFakeTaskRepo(), &seqIDs{})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	first, err := e.Observe(context.Background(), Update{SenderID: "u1", ReceiverID: "ai"}, now)
	require.NoError(t, err)

	second, err := e.Observe(context.Background(), Update{SenderID: "ai", ReceiverID: "u1"}, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.TotalInteractionRounds)
}

func TestEngine_ActiveDaysIncrementsOnNewCalendarDay(t *testing.T) {
	e := NewEngine(newFakeRelRepo(), newFakeTaskRepo(), &seqIDs{})
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC)

	_, err := e.Observe(context.Background(), Update{SenderID: "u1", ReceiverID: "ai"}, day1)
	require.NoError(t, err)
	r, err := e.Observe(context.Background(), Update{SenderID: "u1", ReceiverID: "ai"}, day2)
	require.NoError(t, err)

	assert.Equal(t, 2, r.ActiveDays)
}

// TestRIS_200TurnConvergence mirrors spec §8 scenario 6: ~200 interaction
// rounds with consistent resonance should land RIS near the top of the
// "intimate" band.
func TestRIS_200TurnConvergence(t *testing.T) {
	e := NewEngine(newFakeRelRepo(), newFakeTaskRepo(), &seqIDs{})
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var r *models.Record
	var err error
	for i := 0; i < 200; i++ {
		r, err = e.Observe(ctx, Update{
			SenderID: "u1", ReceiverID: "ai",
			EmotionalResonance: true,
			Collaboration:      &models.Collaboration{Diary: 1},
		}, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	ris := RIS(r)
	assert.InDelta(t, 1.0, ris, 0.05)
	assert.Equal(t, LevelIntimate, LevelOf(ris))
}

func TestEngine_DisconnectIsSticky(t *testing.T) {
	e := NewEngine(newFakeRelRepo(), newFakeTaskRepo(), &seqIDs{})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Observe(context.Background(), Update{SenderID: "u1", ReceiverID: "ai"}, now)
	require.NoError(t, err)

	require.NoError(t, e.Disconnect(context.Background(), "u1", "ai"))

	r, err := e.records.FindByPair(context.Background(), "u1", "ai")
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipBroken, e.Status(r, now.Add(time.Hour)))

	// Even a fresh interaction after reconnecting does not clear broken.
	_, err = e.Observe(context.Background(), Update{SenderID: "u1", ReceiverID: "ai"}, now.Add(2*time.Hour))
	require.NoError(t, err)
	r, _ = e.records.FindByPair(context.Background(), "u1", "ai")
	assert.Equal(t, models.RelationshipBroken, e.Status(r, now.Add(3*time.Hour)))
}

func TestTaskGeneration_DedupSkipsStillPendingTemplate(t *testing.T) {
	relRepo := newFakeRelRepo()
	taskRepo := newFakeTaskRepo()
	e := NewEngine(relRepo, taskRepo, &seqIDs{})
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Drive the pair active enough (RIS >= 0.2, status active) to trigger
	// daily_check_in, then again shortly after: the prior instance is still
	// pending, so no duplicate should be created.
	var r *models.Record
	var err error
	for i := 0; i < 45; i++ {
		r, err = e.Observe(ctx, Update{SenderID: "u1", ReceiverID: "ai", EmotionalResonance: true}, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	tasksByTemplate := map[string]int{}
	all, err := taskRepo.ListByRelationship(ctx, r.ID)
	require.NoError(t, err)
	for _, tk := range all {
		tasksByTemplate[tk.Template]++
	}
	assert.Equal(t, 1, tasksByTemplate["daily_check_in"], "must not duplicate a still-pending task")
}

func TestExecutor_BoundedConcurrencyRunsAllActionableTasks(t *testing.T) {
	relRepo := newFakeRelRepo()
	taskRepo := newFakeTaskRepo()
	e := NewEngine(relRepo, taskRepo, &seqIDs{})
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := e.Observe(ctx, Update{SenderID: "u1", ReceiverID: "ai", EmotionalResonance: true}, now)
	require.NoError(t, err)

	var ran int
	exec := NewExecutor(e, func(ctx context.Context, task *models.RelationshipTask) error {
		ran++
		return nil
	}, 2)

	require.NoError(t, exec.RunOnce(ctx))
	assert.Greater(t, ran, 0)

	remaining, err := e.ListActionable(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining, "all executed tasks must be marked completed")
}
