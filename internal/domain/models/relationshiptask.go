package models

import "time"

// TaskStatus is the lifecycle of a Relationship Task (spec §3).
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
	TaskFailed     TaskStatus = "failed"
)

// RelationshipTask is materialized by the Relationship Engine's template
// catalog (spec §4.5), grounded on relationship/tasks.py's Task/RelationshipTask.
type RelationshipTask struct {
	ID             string
	RelationshipID string
	Template       string
	Title          string
	Description    string
	Priority       int // 1..5
	Status         TaskStatus
	CreatedAt      time.Time
	DueAt          *time.Time
	CompletedAt    *time.Time
	Tags           map[string]string
}

func NewRelationshipTask(id, relationshipID, template, title, description string, priority int, now time.Time, due *time.Time) *RelationshipTask {
	return &RelationshipTask{
		ID:             id,
		RelationshipID: relationshipID,
		Template:       template,
		Title:          title,
		Description:    description,
		Priority:       priority,
		Status:         TaskPending,
		CreatedAt:      now,
		DueAt:          due,
		Tags:           map[string]string{},
	}
}

func (t *RelationshipTask) Open() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}

func (t *RelationshipTask) Complete(now time.Time) {
	t.Status = TaskCompleted
	t.CompletedAt = &now
}

func (t *RelationshipTask) Cancel() {
	t.Status = TaskCancelled
}

func (t *RelationshipTask) Fail() {
	t.Status = TaskFailed
}
