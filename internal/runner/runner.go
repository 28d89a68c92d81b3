package runner

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/litrun/internal/discovery"
	"github.com/eugenenazirov/litrun/internal/shtest"
)

const defaultTimeout = 60 * time.Second

// Executor runs a single test.
type Executor interface {
	Run(ctx context.Context, test discovery.Test) shtest.Result
}

// Summary counts results per status.
type Summary struct {
	Total  int                   `json:"total"`
	Failed int                   `json:"failed"`
	Counts map[shtest.Status]int `json:"counts"`
}

// Run is the outcome of one invocation of the runner.
type Run struct {
	ID        string          `json:"id"`
	Suite     string          `json:"suite"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Results   []shtest.Result `json:"results"`
	Summary   Summary         `json:"summary"`
}

// Passed reports whether no result failed the run.
func (r Run) Passed() bool {
	return r.Summary.Failed == 0
}

// Runner schedules tests onto a fixed pool of workers.
type Runner struct {
	executor Executor
	workers  int
	timeout  time.Duration
	limiter  launchLimiter
	logger   *zap.Logger
	clock    func() time.Time
	newID    func() string
}

// Option configures Runner behaviour.
type Option func(*Runner)

// WithWorkers sets the number of tests executed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTimeout sets the time budget of each test.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLaunchRate throttles how fast tests are started. A non-positive rate
// disables throttling.
func WithLaunchRate(launchesPerSecond float64, burst int) Option {
	return func(r *Runner) {
		r.limiter = newTokenBucketLimiter(launchesPerSecond, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithIDGenerator overrides how run IDs are produced, primarily for tests.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) {
		r.newID = newID
	}
}

// New constructs a Runner around executor.
func New(executor Executor, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		workers:  runtime.NumCPU(),
		timeout:  defaultTimeout,
		logger:   zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: func() string {
			return uuid.New().String()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes tests and returns their aggregated results. When ctx is
// cancelled before every test started, the partial run is returned together
// with ErrInterrupted.
func (r *Runner) Run(ctx context.Context, suiteName string, tests []discovery.Test) (Run, error) {
	run := Run{
		ID:        r.newID(),
		Suite:     suiteName,
		StartedAt: r.clock(),
	}
	start := time.Now()

	logger := r.logger.With(zap.String("run_id", run.ID), zap.String("suite", suiteName))
	logger.Info("test run started", zap.Int("tests", len(tests)), zap.Int("workers", r.workers))

	results := make([]*shtest.Result, len(tests))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result := r.runOne(ctx, tests[idx])
				results[idx] = &result
				logger.Info("test finished",
					zap.String("test", result.Name),
					zap.String("status", string(result.Status)),
					zap.Duration("duration", result.Duration),
				)
			}
		}()
	}

	scheduled, scheduleErr := r.schedule(ctx, len(tests), jobs)
	close(jobs)
	wg.Wait()

	run.Results = make([]shtest.Result, 0, len(tests))
	for _, result := range results {
		if result != nil {
			run.Results = append(run.Results, *result)
		}
	}
	sort.SliceStable(run.Results, func(i, j int) bool {
		return run.Results[i].Name < run.Results[j].Name
	})
	run.Summary = Summarize(run.Results)
	run.Duration = time.Since(start)

	logger.Info("test run completed",
		zap.Int("total", run.Summary.Total),
		zap.Int("failed", run.Summary.Failed),
		zap.Duration("duration", run.Duration),
	)

	if scheduleErr != nil {
		logger.Warn("test run interrupted", zap.Int("skipped", len(tests)-scheduled), zap.Error(scheduleErr))
		return run, fmt.Errorf("%w: %d of %d tests started: %w", ErrInterrupted, scheduled, len(tests), scheduleErr)
	}
	return run, nil
}

// schedule feeds test indexes to the workers and returns how many were handed out.
func (r *Runner) schedule(ctx context.Context, total int, jobs chan<- int) (int, error) {
	for idx := 0; idx < total; idx++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return idx, err
			}
		}
		select {
		case jobs <- idx:
		case <-ctx.Done():
			return idx, ctx.Err()
		}
	}
	return total, nil
}

func (r *Runner) runOne(ctx context.Context, test discovery.Test) shtest.Result {
	testCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.executor.Run(testCtx, test)
}

// Summarize counts results per status.
func Summarize(results []shtest.Result) Summary {
	summary := Summary{
		Total:  len(results),
		Counts: make(map[shtest.Status]int, len(shtest.Statuses())),
	}
	for _, result := range results {
		summary.Counts[result.Status]++
		if result.Status.IsFailure() {
			summary.Failed++
		}
	}
	return summary
}
