package relationship

import (
	"context"
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// template is one entry in the fixed catalog of spec §4.5 "Task
// generation", grounded on relationship/tasks.py's TaskManager
// task_templates table.
type template struct {
	Name        string
	Title       string
	Description string
	Priority    int
	MinRIS      float64
	Status      models.RelationshipStatus
}

var templateCatalog = []template{
	{Name: "daily_check_in", Title: "Daily check-in", Description: "Send a daily greeting and ask how things are going.", Priority: 3, MinRIS: 0.2, Status: models.RelationshipActive},
	{Name: "emotional_support", Title: "Emotional support", Description: "Offer emotional support and encouragement.", Priority: 4, MinRIS: 0.4, Status: models.RelationshipActive},
	{Name: "deep_conversation", Title: "Deep conversation", Description: "Open a more substantive topic for discussion.", Priority: 3, MinRIS: 0.6, Status: models.RelationshipActive},
	{Name: "collaboration_project", Title: "Collaboration project", Description: "Invite the user into a collaborative project.", Priority: 4, MinRIS: 0.7, Status: models.RelationshipActive},
	{Name: "cooling_prevention", Title: "Cooling prevention", Description: "Increase interaction frequency to slow relationship cooling.", Priority: 3, MinRIS: 0.3, Status: models.RelationshipCooling},
	{Name: "relationship_revival", Title: "Relationship revival", Description: "Attempt to re-activate a silent relationship.", Priority: 2, MinRIS: 0, Status: models.RelationshipSilent},
}

// generateTasks materializes every template whose predicates are
// satisfied and whose prior instance for this record is not still open
// (spec §4.5 "Task generation"; SUPPLEMENTAL FEATURES item 2 — the
// source's generate_tasks_for_relationship lacks the dedup check, added
// here per spec.md's explicit requirement).
func (e *Engine) generateTasks(ctx context.Context, r *models.Record, now time.Time) error {
	status := e.Status(r, now)
	ris := RIS(r)

	existing, err := e.tasks.ListByRelationship(ctx, r.ID)
	if err != nil {
		return err
	}
	openByTemplate := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.Open() {
			openByTemplate[t.Template] = true
		}
	}

	for _, tmpl := range templateCatalog {
		if tmpl.Status != status || ris < tmpl.MinRIS {
			continue
		}
		if openByTemplate[tmpl.Name] {
			continue
		}
		task := models.NewRelationshipTask(
			e.idGen.GenerateRelationshipTaskID(),
			r.ID,
			tmpl.Name,
			tmpl.Title,
			tmpl.Description,
			tmpl.Priority,
			now,
			nil,
		)
		if err := e.tasks.Create(ctx, task); err != nil {
			return err
		}
	}
	return nil
}
