package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
)

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context) error

type job struct {
	name        string
	schedule    Schedule
	fn          JobFunc
	immediately bool
	timeout     time.Duration
}

// JobOption configures a job.
type JobOption func(*job)

// RunImmediately also runs the job once when the scheduler starts.
func RunImmediately() JobOption {
	return func(j *job) { j.immediately = true }
}

// WithTimeout bounds every run of the job.
func WithTimeout(d time.Duration) JobOption {
	return func(j *job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now when computing the next run.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs registered jobs in-process. Runs of one job never overlap;
// a run that outlasts its interval delays the next one.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	names   map[string]struct{}
	running bool
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		names:  make(map[string]struct{}),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers fn under name.
func (s *Scheduler) Add(name string, schedule Schedule, fn JobFunc, opts ...JobOption) error {
	if name == "" || fn == nil || schedule == nil {
		return ErrInvalidJob
	}
	j := &job{name: name, schedule: schedule, fn: fn}
	for _, opt := range opts {
		opt(j)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	s.names[name] = struct{}{}
	s.jobs = append(s.jobs, j)

	s.logger.Info("job registered",
		logger.Component("scheduler"),
		slog.String("job", name),
		slog.String("schedule", schedule.String()),
	)
	return nil
}

// Run blocks until ctx is done, running every job on its schedule. Job
// errors are logged and do not stop the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return ErrNoJobs
	}
	s.running = true
	jobs := append([]*job(nil), s.jobs...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	if j.immediately {
		s.execute(ctx, j)
	}
	for {
		next := j.schedule.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, j)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	if ctx.Err() != nil {
		return
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return j.fn(ctx)
	}()

	if err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			logger.Component("scheduler"),
			slog.String("job", j.name),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return
	}
	s.logger.DebugContext(ctx, "job finished",
		logger.Component("scheduler"),
		slog.String("job", j.name),
		logger.Duration(time.Since(start)),
	)
}
