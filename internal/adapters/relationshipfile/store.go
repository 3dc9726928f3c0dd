// Package relationshipfile is the file-based adapter for
// ports.RelationshipRepository and ports.RelationshipTaskRepository (spec
// §6: "the persistent store driver ... their contracts appear in §6"),
// grounded on relationship/models.py's RelationshipManager.save_to_file /
// load_from_file — a two-key {relationships, intensities} JSON document —
// generalized from a single-process save point into a repository pair
// backed by one guarded in-memory index and persisted on every write.
package relationshipfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/relationship"
)

// recordDoc is the on-disk shape of one Relationship Record (spec §6 "file
// formats ... normative when the persist-to-file adapter is used"),
// grounded on RelationshipGraph.to_dict/from_dict.
type recordDoc struct {
	ID                     string               `json:"id"`
	A                      entityRefDoc         `json:"a"`
	B                      entityRefDoc         `json:"b"`
	FirstSeen              string               `json:"first_interaction_time"`
	LastActive             string               `json:"last_active_time"`
	TotalInteractionRounds int                  `json:"total_interaction_rounds"`
	ActiveDays             int                  `json:"active_days"`
	EmotionalResonance     int                  `json:"emotional_resonance_count"`
	Collaboration          collaborationDoc     `json:"collaboration"`
	AffectionScore         float64              `json:"human_affection_score"`
	RecognitionScore       float64              `json:"ai_recognition_score"`
	Broken                 bool                 `json:"explicitly_broken"`
	RecentRoundTimestamps  []string             `json:"recent_round_timestamps"`
}

type entityRefDoc struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type collaborationDoc struct {
	Diary      int `json:"diary_count"`
	CoCreation int `json:"co_creation_count"`
	GiftCount  int `json:"gift_count"`
}

// intensityDoc is the derived-factor snapshot the original source persisted
// alongside each record (RelationshipIntensity.to_dict). It is recomputed
// fresh on every save and never read back — RIS/Status/Level are always
// derived from the live Record fields (package relationship), never from a
// stale snapshot — so the struct exists only to keep the on-disk format
// byte-for-byte compatible with the normative two-key document.
type intensityDoc struct {
	RecentInteractionRounds int                  `json:"recent_interaction_rounds"`
	EmotionalResonanceRatio float64              `json:"emotional_resonance_ratio"`
	CollaborationActivities collaborationDoc     `json:"collaboration_activities"`
	LastUpdated             string               `json:"last_updated"`
	RIS                     float64              `json:"ris"`
	RelationshipLevel       string               `json:"relationship_level"`
}

type fileDoc struct {
	Relationships map[string]recordDoc   `json:"relationships"`
	Intensities   map[string]intensityDoc `json:"intensities"`
}

// RecordStore is the file-based ports.RelationshipRepository. Every mutating
// call persists the full index via temp-file-plus-rename (spec §5 "owns its
// persistence file and guarantees a write-all-or-nothing save").
type RecordStore struct {
	mu   sync.Mutex
	path string
	byID map[string]*models.Record
}

// NewRecordStore loads path if it exists; a missing file starts empty
// (matching load_from_file's FileNotFoundError handling).
func NewRecordStore(path string) (*RecordStore, error) {
	s := &RecordStore{path: path, byID: map[string]*models.Record{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RecordStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for id, rd := range doc.Relationships {
		record, err := fromRecordDoc(rd)
		if err != nil {
			return err
		}
		s.byID[id] = record
	}
	return nil
}

// save serializes the full index, computing a fresh intensities entry per
// record, and writes it atomically (spec §5 temp-file-plus-rename).
func (s *RecordStore) save() error {
	doc := fileDoc{
		Relationships: make(map[string]recordDoc, len(s.byID)),
		Intensities:   make(map[string]intensityDoc, len(s.byID)),
	}
	now := time.Now()
	for id, r := range s.byID {
		doc.Relationships[id] = toRecordDoc(r)
		doc.Intensities[id] = toIntensityDoc(r, now)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *RecordStore) Create(ctx context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r
	return s.save()
}

func (s *RecordStore) Update(ctx context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r
	return s.save()
}

func (s *RecordStore) Get(ctx context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

// FindByPair looks up the record for an unordered pair (spec §3 symmetric
// lookup invariant), delegating to Record.Involves.
func (s *RecordStore) FindByPair(ctx context.Context, aID, bID string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byID {
		if r.Involves(aID, bID) {
			return r, nil
		}
	}
	return nil, nil
}

func (s *RecordStore) List(ctx context.Context) ([]*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Record, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out, nil
}

func toRecordDoc(r *models.Record) recordDoc {
	timestamps := r.RecentRoundTimestamps()
	ts := make([]string, len(timestamps))
	for i, t := range timestamps {
		ts[i] = t.Format(time.RFC3339)
	}
	return recordDoc{
		ID:                     r.ID,
		A:                      entityRefDoc{ID: r.A.ID, Kind: string(r.A.Kind)},
		B:                      entityRefDoc{ID: r.B.ID, Kind: string(r.B.Kind)},
		FirstSeen:              r.FirstSeen.Format(time.RFC3339),
		LastActive:             r.LastActive.Format(time.RFC3339),
		TotalInteractionRounds: r.TotalInteractionRounds,
		ActiveDays:             r.ActiveDays,
		EmotionalResonance:     r.EmotionalResonance,
		Collaboration: collaborationDoc{
			Diary:      r.Collaboration.Diary,
			CoCreation: r.Collaboration.CoCreation,
			GiftCount:  r.Collaboration.GiftCount,
		},
		AffectionScore:        r.AffectionScore,
		RecognitionScore:      r.RecognitionScore,
		Broken:                r.ExplicitlyBroken,
		RecentRoundTimestamps: ts,
	}
}

func fromRecordDoc(rd recordDoc) (*models.Record, error) {
	firstSeen, err := time.Parse(time.RFC3339, rd.FirstSeen)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, "invalid first_interaction_time in relationship file", err)
	}
	lastActive, err := time.Parse(time.RFC3339, rd.LastActive)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, "invalid last_active_time in relationship file", err)
	}
	timestamps := make([]time.Time, len(rd.RecentRoundTimestamps))
	for i, s := range rd.RecentRoundTimestamps {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidArgument, "invalid recent_round_timestamps entry in relationship file", err)
		}
		timestamps[i] = t
	}

	return models.RehydrateRecord(
		rd.ID,
		models.EntityRef{ID: rd.A.ID, Kind: models.ParticipantKind(rd.A.Kind)},
		models.EntityRef{ID: rd.B.ID, Kind: models.ParticipantKind(rd.B.Kind)},
		firstSeen, lastActive,
		rd.TotalInteractionRounds, rd.ActiveDays, rd.EmotionalResonance,
		models.Collaboration{Diary: rd.Collaboration.Diary, CoCreation: rd.Collaboration.CoCreation, GiftCount: rd.Collaboration.GiftCount},
		rd.AffectionScore, rd.RecognitionScore, rd.Broken, timestamps,
	), nil
}

func toIntensityDoc(r *models.Record, now time.Time) intensityDoc {
	var emotionalRatio float64
	if r.TotalInteractionRounds > 0 {
		emotionalRatio = float64(r.EmotionalResonance) / float64(r.TotalInteractionRounds)
	}
	ris := relationship.RIS(r)
	return intensityDoc{
		RecentInteractionRounds: r.RecentRounds,
		EmotionalResonanceRatio: emotionalRatio,
		CollaborationActivities: collaborationDoc{
			Diary:      r.Collaboration.Diary,
			CoCreation: r.Collaboration.CoCreation,
			GiftCount:  r.Collaboration.GiftCount,
		},
		LastUpdated:       now.Format(time.RFC3339),
		RIS:               ris,
		RelationshipLevel: string(relationship.LevelOf(ris)),
	}
}
