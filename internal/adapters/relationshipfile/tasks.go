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
)

// taskDoc is the on-disk shape of one Relationship Task, grounded on
// relationship/tasks.py's Task serialization.
type taskDoc struct {
	ID             string `json:"id"`
	RelationshipID string `json:"relationship_id"`
	Template       string `json:"template"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       int    `json:"priority"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	DueAt          string `json:"due_at,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
}

type taskFileDoc struct {
	Tasks map[string]taskDoc `json:"tasks"`
}

// TaskStore is the file-based ports.RelationshipTaskRepository, persisted
// as its own document (separate from RecordStore's {relationships,
// intensities} file) since spec §6 fixes only the Relationship Record
// document's shape and leaves Task persistence to the adapter.
type TaskStore struct {
	mu   sync.Mutex
	path string
	byID map[string]*models.RelationshipTask
}

func NewTaskStore(path string) (*TaskStore, error) {
	s := &TaskStore{path: path, byID: map[string]*models.RelationshipTask{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TaskStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc taskFileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for id, td := range doc.Tasks {
		task, err := fromTaskDoc(td)
		if err != nil {
			return err
		}
		s.byID[id] = task
	}
	return nil
}

func (s *TaskStore) save() error {
	doc := taskFileDoc{Tasks: make(map[string]taskDoc, len(s.byID))}
	for id, t := range s.byID {
		doc.Tasks[id] = toTaskDoc(t)
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

func (s *TaskStore) Create(ctx context.Context, t *models.RelationshipTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = t
	return s.save()
}

func (s *TaskStore) Update(ctx context.Context, t *models.RelationshipTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = t
	return s.save()
}

func (s *TaskStore) Get(ctx context.Context, id string) (*models.RelationshipTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

func (s *TaskStore) ListByRelationship(ctx context.Context, relationshipID string) ([]*models.RelationshipTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RelationshipTask
	for _, t := range s.byID {
		if t.RelationshipID == relationshipID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListExecutable returns every task still open (spec §4.5 "background task
// catalog" — the Relationship Engine's ListActionable then sorts this view
// by priority).
func (s *TaskStore) ListExecutable(ctx context.Context) ([]*models.RelationshipTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RelationshipTask
	for _, t := range s.byID {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out, nil
}

func toTaskDoc(t *models.RelationshipTask) taskDoc {
	td := taskDoc{
		ID:             t.ID,
		RelationshipID: t.RelationshipID,
		Template:       t.Template,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       t.Priority,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
	}
	if t.DueAt != nil {
		td.DueAt = t.DueAt.Format(time.RFC3339)
	}
	if t.CompletedAt != nil {
		td.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return td
}

func fromTaskDoc(td taskDoc) (*models.RelationshipTask, error) {
	createdAt, err := time.Parse(time.RFC3339, td.CreatedAt)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, "invalid created_at in relationship task file", err)
	}
	task := models.NewRelationshipTask(td.ID, td.RelationshipID, td.Template, td.Title, td.Description, td.Priority, createdAt, nil)
	task.Status = models.TaskStatus(td.Status)
	if td.DueAt != "" {
		due, err := time.Parse(time.RFC3339, td.DueAt)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidArgument, "invalid due_at in relationship task file", err)
		}
		task.DueAt = &due
	}
	if td.CompletedAt != "" {
		completed, err := time.Parse(time.RFC3339, td.CompletedAt)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidArgument, "invalid completed_at in relationship task file", err)
		}
		task.CompletedAt = &completed
	}
	return task, nil
}
