package models

import "time"

// RelationshipStatus is computed lazily on read, except Broken which is set
// explicitly (spec §4.5).
type RelationshipStatus string

const (
	RelationshipActive  RelationshipStatus = "active"
	RelationshipCooling RelationshipStatus = "cooling"
	RelationshipSilent  RelationshipStatus = "silent"
	RelationshipBroken  RelationshipStatus = "broken"
)

// EntityRef names one side of a Relationship Record's ordered pair.
type EntityRef struct {
	ID   string
	Kind ParticipantKind
}

// Collaboration tracks the sub-bag of collaborative interaction counters
// (spec §4.5: "collaboration sub-bag ... {diary, co_creation, gift}"),
// grounded on relationship/models.py's RelationshipGraph collaboration
// counters.
type Collaboration struct {
	Diary       int
	CoCreation  int
	GiftCount   int
}

// Record is a Relationship Record (spec §3). The pair is symmetric for
// lookup: Involves(A,B) == Involves(B,A), which FindByPair relies on.
type Record struct {
	ID      string
	A       EntityRef
	B       EntityRef

	FirstSeen time.Time
	LastActive time.Time

	TotalInteractionRounds int
	RecentRounds           int // trailing 7-day window, spec §9 open question resolved in favor of a true sliding window
	ActiveDays             int
	EmotionalResonance     int
	Collaboration          Collaboration
	AffectionScore         float64 // driven by GiftCount
	RecognitionScore       float64 // reciprocal tokens

	ExplicitlyBroken bool

	// recentRoundTimestamps backs the 7-day sliding window for RecentRounds.
	recentRoundTimestamps []time.Time
}

func NewRecord(id string, a, b EntityRef, now time.Time) *Record {
	return &Record{
		ID:         id,
		A:          a,
		B:          b,
		FirstSeen:  now,
		LastActive: now,
	}
}

// Involves reports whether the unordered pair (x,y) matches this record's
// pair, in either order (spec §3 symmetric lookup invariant).
func (r *Record) Involves(x, y string) bool {
	return (r.A.ID == x && r.B.ID == y) || (r.A.ID == y && r.B.ID == x)
}

// RecordRound pushes a timestamp into the sliding window and evicts entries
// older than 7 days, then stores the resulting window size in RecentRounds.
func (r *Record) RecordRound(now time.Time) {
	r.recentRoundTimestamps = append(r.recentRoundTimestamps, now)
	cutoff := now.Add(-7 * 24 * time.Hour)
	kept := r.recentRoundTimestamps[:0]
	for _, ts := range r.recentRoundTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	r.recentRoundTimestamps = kept
	r.RecentRounds = len(r.recentRoundTimestamps)
}

// Status computes the lazily-derived status (spec §4.5):
//   active  ⇐ last_active within activeWindowDays AND recent rounds >= activeMinRounds7d
//   cooling ⇐ last_active within activeWindowDays but rounds below the minimum,
//             OR last_active within (activeWindowDays, silentThresholdDays]
//   silent  ⇐ last_active beyond silentThresholdDays
// Broken is sticky once set and never recomputed.
func (r *Record) Status(now time.Time, activeWindowDays, silentThresholdDays, activeMinRounds7d int) RelationshipStatus {
	if r.ExplicitlyBroken {
		return RelationshipBroken
	}
	age := now.Sub(r.LastActive)
	activeWindow := time.Duration(activeWindowDays) * 24 * time.Hour
	silentThreshold := time.Duration(silentThresholdDays) * 24 * time.Hour
	switch {
	case age <= activeWindow && r.RecentRounds >= activeMinRounds7d:
		return RelationshipActive
	case age <= silentThreshold:
		return RelationshipCooling
	default:
		return RelationshipSilent
	}
}

// Disconnect explicitly sets the record to broken (spec §9 supplemental
// feature: broken "is set explicitly by a disconnect operation").
func (r *Record) Disconnect() {
	r.ExplicitlyBroken = true
}

// RecentRoundTimestamps exposes the sliding window backing RecentRounds to
// a persistence adapter; the field itself stays unexported so every other
// caller can only advance it through RecordRound.
func (r *Record) RecentRoundTimestamps() []time.Time {
	return r.recentRoundTimestamps
}

// RehydrateRecord reconstructs a Record from persisted field values,
// including the sliding window a file or row adapter read back (spec §6
// "file formats for persisted state" — the Go engine's true sliding window,
// unlike the snapshot-int the original source persisted, needs the
// timestamps themselves to keep decaying correctly after a reload).
func RehydrateRecord(id string, a, b EntityRef, firstSeen, lastActive time.Time,
	totalRounds, activeDays, emotionalResonance int, collab Collaboration,
	affection, recognition float64, broken bool, recentRoundTimestamps []time.Time) *Record {
	return &Record{
		ID:                     id,
		A:                      a,
		B:                      b,
		FirstSeen:              firstSeen,
		LastActive:             lastActive,
		TotalInteractionRounds: totalRounds,
		RecentRounds:           len(recentRoundTimestamps),
		ActiveDays:             activeDays,
		EmotionalResonance:     emotionalResonance,
		Collaboration:          collab,
		AffectionScore:         affection,
		RecognitionScore:       recognition,
		ExplicitlyBroken:       broken,
		recentRoundTimestamps:  recentRoundTimestamps,
	}
}
