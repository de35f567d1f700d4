package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/store"
)

// DefaultPacing is the pause after one comparison completes and before the next starts.
const DefaultPacing = 100 * time.Millisecond

// DefaultCount is the number of comparisons a simulation attempts.
const DefaultCount = 20

// TooFewEntities is recorded when fewer than two scenario entities could be created.
const TooFewEntities = "Need at least 2 entities for comparisons"

// EntityCreator creates entities. Satisfied by *store.Entities.
type EntityCreator interface {
	Create(ctx context.Context, input models.EntityInput) store.Result[*models.Entity]
}

// ComparisonCreator records comparisons. Satisfied by *store.Comparisons.
type ComparisonCreator interface {
	CreateComparison(ctx context.Context, input models.ComparisonInput) store.Result[*models.Comparison]
}

// Phase identifies the stage a simulation is in.
type Phase string

const (
	PhaseEntities    Phase = "entities"
	PhaseComparisons Phase = "comparisons"
	PhaseDone        Phase = "done"
)

// Progress is reported after every step.
type Progress struct {
	Phase Phase
	Done  int
	Total int
	// Err is the error message of the step, if it failed.
	Err string
}

// Options tune a simulation run. The zero value uses DefaultPacing and a
// randomly seeded generator.
type Options struct {
	Pacing     time.Duration
	Rand       *rand.Rand
	OnProgress func(Progress)
}

// Result summarizes a simulation run.
type Result struct {
	Created  int
	Errors   []string
	Duration time.Duration
}

// SimulateComparisons creates every scenario entity, then records count random
// comparisons between the ones that were created. Per-item failures are
// collected in Result.Errors and do not stop the run. Cancelling ctx stops the
// run between steps and records the cancellation.
func SimulateComparisons(ctx context.Context, entities EntityCreator, comparisons ComparisonCreator, scenario Scenario, count int, opts Options) Result {
	start := time.Now()
	res := Result{Errors: []string{}}
	report := func(p Progress) {
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}
	defer func() {
		res.Duration = time.Since(start)
	}()

	created := make([]models.Entity, 0, len(scenario.Entities))
	for i, input := range scenario.Entities {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		r := entities.Create(ctx, input)
		p := Progress{Phase: PhaseEntities, Done: i + 1, Total: len(scenario.Entities)}
		if r.Success && r.Data != nil {
			created = append(created, *r.Data)
		} else {
			p.Err = fmt.Sprintf("Failed to create %s: %s", input.Name, r.Error)
			res.Errors = append(res.Errors, p.Err)
		}
		report(p)
	}

	if len(created) < 2 {
		res.Errors = append(res.Errors, TooFewEntities)
		report(Progress{Phase: PhaseDone, Err: TooFewEntities})
		return res
	}

	pacing := opts.Pacing
	if pacing <= 0 {
		pacing = DefaultPacing
	}

	planned := GenerateRandomComparisons(created, count, opts.Rand)
	for i, input := range planned {
		if i > 0 {
			if err := pause(ctx, pacing); err != nil {
				res.Errors = append(res.Errors, err.Error())
				return res
			}
		} else if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		r := comparisons.CreateComparison(ctx, input)
		p := Progress{Phase: PhaseComparisons, Done: i + 1, Total: len(planned)}
		if r.Success {
			res.Created++
		} else {
			p.Err = "Failed to create comparison: " + r.Error
			res.Errors = append(res.Errors, p.Err)
		}
		report(p)
	}

	report(Progress{Phase: PhaseDone, Done: res.Created, Total: len(planned)})
	return res
}

// pause blocks for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
