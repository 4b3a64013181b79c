package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/upb/agency-backoffice/internal/observability"
	"github.com/upb/agency-backoffice/services"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// Job is a unit of background work run once or on an interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes jobs by name or loops them on their intervals
type Runner struct {
	jobs    map[string]Job
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRunner creates a runner over jobs. metrics may be nil.
func NewRunner(metrics *observability.Metrics, logger *zap.Logger, jobs ...Job) *Runner {
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	return &Runner{jobs: byName, metrics: metrics, logger: logger}
}

// Names lists the registered jobs in order
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOnce executes a single job and records the outcome
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	job, ok := r.jobs[name]
	if !ok {
		return services.NewDomainError(services.ErrorTypeNotFound, fmt.Sprintf("unknown job %q", name), nil)
	}
	return r.execute(ctx, job)
}

func (r *Runner) execute(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Run(ctx)
	r.metrics.RecordJobRun(job.Name, err)

	if err != nil {
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}
	r.logger.Info("job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Run starts every job once and then on its interval until ctx is
// cancelled. A failed run is logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	for _, job := range r.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %s has no interval", job.Name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range r.Names() {
		job := r.jobs[name]
		g.Go(func() error {
			r.loop(gctx, job)
			return nil
		})
	}
	r.logger.Info("job loop started", zap.Strings("jobs", r.Names()))
	err := g.Wait()
	r.logger.Info("job loop stopped")
	return err
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	_ = r.execute(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.execute(ctx, job)
		}
	}
}
