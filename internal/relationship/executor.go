package relationship

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// TaskExecutorFunc performs whatever side effect a materialized task
// describes (e.g. handing it to the Dialogue Manager as a synthetic
// outbound prompt). Returning an error marks the task Failed.
type TaskExecutorFunc func(ctx context.Context, task *models.RelationshipTask) error

// Executor runs the Relationship Engine's background task-generation
// loop: poll the "executable tasks" view on a schedule, execute each one
// through a bounded concurrency pool (spec §5 "execution of generated
// tasks is bounded by a task-executor pool with a configurable
// concurrency"), grounded on the teacher's general goroutine+WaitGroup
// fan-out style but reaching for golang.org/x/sync's semaphore/errgroup
// instead of hand-rolled channel bookkeeping, since both are already
// indirect dependencies of the teacher's go.mod and this is exactly the
// documented purpose of semaphore.Weighted.
type Executor struct {
	engine      *Engine
	run         TaskExecutorFunc
	concurrency int64
}

func NewExecutor(engine *Engine, run TaskExecutorFunc, concurrency int64) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{engine: engine, run: run, concurrency: concurrency}
}

// RunOnce executes every currently-actionable task once, bounded by the
// configured concurrency, and returns after all of them complete or ctx
// is cancelled.
func (ex *Executor) RunOnce(ctx context.Context) error {
	tasks, err := ex.engine.ListActionable(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(ex.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		task := task
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return ex.executeOne(gctx, task)
		})
	}

	return g.Wait()
}

func (ex *Executor) executeOne(ctx context.Context, task *models.RelationshipTask) error {
	if task.Status == models.TaskPending {
		task.Status = models.TaskInProgress
		if err := ex.engine.tasks.Update(ctx, task); err != nil {
			return err
		}
	}

	if err := ex.run(ctx, task); err != nil {
		task.Fail()
		if updErr := ex.engine.tasks.Update(ctx, task); updErr != nil {
			log.Printf("relationship: failed to persist task failure %s: %v", task.ID, updErr)
		}
		return err
	}

	task.Complete(time.Now())
	return ex.engine.tasks.Update(ctx, task)
}
