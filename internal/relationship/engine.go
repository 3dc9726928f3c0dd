// Package relationship implements the Relationship Engine (C5): a
// durable, symmetric relationship record per pair of interacting
// entities, an intensity score (RIS), and the background task catalog
// that shapes future prompts (spec §4.5).
package relationship

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/metrics"
	"github.com/rcitylucas/dialogengine/internal/ports"
)

var tracer = otel.Tracer("dialogengine/relationship")

const (
	activeWindowDays    = 7
	silentThresholdDays = 14
	activeMinRounds7d   = 21
)

// Update is what the Dialogue Manager reports after processing a turn
// (spec §4.5 "State update").
type Update struct {
	SenderID         string
	SenderKind       models.ParticipantKind
	ReceiverID       string
	ReceiverKind     models.ParticipantKind
	EmotionalResonance bool
	Collaboration    *models.Collaboration // nil if no sub-bag present
}

// Engine maintains Relationship Records and derives RIS/status/tasks from
// them. Updates to one record are serialized by record identifier; across
// records they run in parallel (spec §5) — achieved here by the
// repository's own per-row locking plus the caller holding no engine-wide
// lock across an await point.
type Engine struct {
	records ports.RelationshipRepository
	tasks   ports.RelationshipTaskRepository
	idGen   ports.IDGenerator
	metrics *metrics.Recorder
}

func NewEngine(records ports.RelationshipRepository, tasks ports.RelationshipTaskRepository, idGen ports.IDGenerator) *Engine {
	return &Engine{records: records, tasks: tasks, idGen: idGen}
}

// SetMetrics attaches a metrics.Recorder that Observe counts persisted
// updates into. Optional.
func (e *Engine) SetMetrics(r *metrics.Recorder) {
	e.metrics = r
}

// Observe locates or creates the Relationship Record for the pair, applies
// the update, and materializes any newly-eligible tasks (spec §4.5 "State
// update" + "Task generation", run together since both happen per turn).
func (e *Engine) Observe(ctx context.Context, u Update, now time.Time) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, "relationship.Engine.Observe")
	defer span.End()

	record, err := e.records.FindByPair(ctx, u.SenderID, u.ReceiverID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = models.NewRecord(e.idGen.GenerateRelationshipID(),
			models.EntityRef{ID: u.SenderID, Kind: u.SenderKind},
			models.EntityRef{ID: u.ReceiverID, Kind: u.ReceiverKind},
			now)
		if err := e.records.Create(ctx, record); err != nil {
			return nil, err
		}
	}

	applyUpdate(record, u, now)

	if err := e.records.Update(ctx, record); err != nil {
		return nil, err
	}

	if err := e.generateTasks(ctx, record, now); err != nil {
		return nil, err
	}
	e.metrics.IncRelationshipUpdate()
	return record, nil
}

// applyUpdate folds one turn's worth of interaction into the record (spec
// §4.5 "State update"), grounded on
// relationship/models.py's RelationshipGraph.update_interaction plus
// RelationshipManager.update_collaboration.
func applyUpdate(r *models.Record, u Update, now time.Time) {
	previousActiveDate := r.LastActive
	firstRound := r.TotalInteractionRounds == 0
	r.TotalInteractionRounds++
	r.LastActive = now
	if firstRound || !sameDate(previousActiveDate, now) {
		r.ActiveDays++
	}
	r.RecordRound(now)

	if u.EmotionalResonance {
		r.EmotionalResonance++
	}

	if u.Collaboration != nil {
		r.Collaboration.Diary += u.Collaboration.Diary
		r.Collaboration.CoCreation += u.Collaboration.CoCreation
		r.Collaboration.GiftCount += u.Collaboration.GiftCount
		if u.Collaboration.GiftCount > 0 {
			// Affection is driven by gift count (spec §3); weighting left to
			// the engine since spec.md does not fix a per-gift value.
			r.AffectionScore += float64(u.Collaboration.GiftCount) * 10
		}
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// RecordFor is a read-only lookup used by callers that need the current
// Relationship Record (e.g. to shape a prompt) without reporting a new
// interaction. Returns a nil record, nil error if the pair has never
// interacted.
func (e *Engine) RecordFor(ctx context.Context, aID, bID string) (*models.Record, error) {
	return e.records.FindByPair(ctx, aID, bID)
}

// Status returns the lazily-computed status (spec §4.5 fixed windows).
func (e *Engine) Status(r *models.Record, now time.Time) models.RelationshipStatus {
	return r.Status(now, activeWindowDays, silentThresholdDays, activeMinRounds7d)
}

// RIS computes the Relationship Intensity Score per spec §4.5's normative
// weights and per-factor caps.
func RIS(r *models.Record) float64 {
	fInteraction := minF(float64(r.RecentRounds)/200.0, 1)

	var fEmotional float64
	if r.TotalInteractionRounds > 0 {
		fEmotional = minF(float64(r.EmotionalResonance)/float64(r.TotalInteractionRounds), 1)
	}

	fCollaboration := minF(
		0.05*float64(r.Collaboration.Diary)+0.05*float64(r.Collaboration.CoCreation)+0.1*float64(r.Collaboration.GiftCount),
		1,
	)

	return 0.4*fInteraction + 0.35*fEmotional + 0.25*fCollaboration
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Level is one of the five normative RIS bands (spec §4.5).
type Level string

const (
	LevelStranger     Level = "stranger"
	LevelAcquaintance Level = "acquaintance"
	LevelFriend       Level = "friend"
	LevelClose        Level = "close"
	LevelIntimate     Level = "intimate"
)

// LevelOf classifies a RIS value into its normative band.
func LevelOf(ris float64) Level {
	switch {
	case ris <= 0.2:
		return LevelStranger
	case ris <= 0.4:
		return LevelAcquaintance
	case ris <= 0.6:
		return LevelFriend
	case ris <= 0.8:
		return LevelClose
	default:
		return LevelIntimate
	}
}

// Disconnect explicitly breaks the relationship for the pair (spec §9
// supplemental feature 3).
func (e *Engine) Disconnect(ctx context.Context, aID, bID string) error {
	r, err := e.records.FindByPair(ctx, aID, bID)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	r.Disconnect()
	return e.records.Update(ctx, r)
}

// ListActionable returns every Relationship Task across every record whose
// status is still pending or in_progress, sorted by descending priority
// then ascending creation time — the view the background task-executor
// pool polls (spec §5 "polling the engine's executable tasks view").
func (e *Engine) ListActionable(ctx context.Context) ([]*models.RelationshipTask, error) {
	tasks, err := e.tasks.ListExecutable(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}
