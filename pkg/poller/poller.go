// Package poller runs the recurring status poll of one monitored scan.
//
// A Scheduler owns at most one poll loop. Each tick fetches the task status
// and the per-stage fragments in a fixed order, then hands the result to the
// configured OnUpdate callback. Starting a new loop cancels the previous one
// and waits for it to exit; updates from a superseded loop are dropped.
//
// Ticks are fail-stop: a fatal error ends the loop and is reported once via
// OnError. Optional fragments degrade to "no data yet" instead.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentrixio/scanwatch/pkg/client"
	"github.com/sentrixio/scanwatch/pkg/core"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/metrics"
	"github.com/sentrixio/scanwatch/pkg/types"
)

// DefaultInterval is the period between ticks.
const DefaultInterval = 3 * time.Second

// TaskClient is the part of the API client a poll loop needs.
type TaskClient interface {
	TaskStatus(ctx context.Context, taskID string) (*types.Task, error)
	JSFiles(ctx context.Context, taskID string) ([]types.JSAsset, error)
	Leaks(ctx context.Context, taskID string) ([]types.Leak, error)
	TaskLogs(ctx context.Context, taskID string) ([]types.LogEntry, error)
}

var _ TaskClient = (*client.Client)(nil)

// Update is the outcome of one tick. A nil slice means the category was not
// fetched or its fetch failed; callers keep their previous value.
type Update struct {
	TaskID     string
	Generation uint64
	Task       *types.Task

	Assets    []types.JSAsset
	Endpoints []types.Endpoint
	Leaks     []types.Leak
	Logs      []types.LogEntry
	Risk      *types.RiskSummary

	// Terminal is set on the last update of a loop.
	Terminal bool
}

// Config configures a Scheduler.
type Config struct {
	Interval time.Duration `yaml:"interval" json:"interval"`

	// OnUpdate receives every tick of the current loop. It must not call
	// Start or Stop.
	OnUpdate func(u *Update) `yaml:"-" json:"-"`

	// OnError receives the fatal error that ended a loop.
	OnError func(taskID string, err error) `yaml:"-" json:"-"`

	Logger  core.Logger       `yaml:"-" json:"-"`
	Metrics metrics.Collector `yaml:"-" json:"-"`
}

// Scheduler runs at most one poll loop at a time.
type Scheduler struct {
	client   TaskClient
	interval time.Duration
	onUpdate func(u *Update)
	onError  func(taskID string, err error)
	logger   core.Logger
	metrics  metrics.Collector

	// gen identifies the current loop; bumped under deliverMu so an
	// in-flight delivery either completes before or sees the new value.
	gen       atomic.Uint64
	deliverMu sync.Mutex

	mu     sync.Mutex
	taskID string
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler.
func New(c TaskClient, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = &Config{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		client:   c,
		interval: interval,
		onUpdate: cfg.OnUpdate,
		onError:  cfg.OnError,
		logger:   core.OrNop(cfg.Logger),
		metrics:  metrics.OrNop(cfg.Metrics),
	}
}

// Start begins polling taskID. Any running loop is cancelled and has exited
// before the new one starts; the first tick runs immediately.
func (s *Scheduler) Start(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.E(errors.KindInvalidInput, "poller.Start", "task ID is required")
	}

	gen := s.supersede()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	if s.gen.Load() != gen {
		// A concurrent Start or Stop won.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.taskID, s.cancel, s.done = taskID, cancel, done
	s.mu.Unlock()

	s.logger.Info("polling task %s every %s", taskID, s.interval)
	go s.loop(loopCtx, gen, taskID, done)
	return nil
}

// Stop cancels the running loop and waits for it to exit. It is safe to call
// when nothing is running.
func (s *Scheduler) Stop() {
	s.supersede()
}

// supersede invalidates the current loop, waits for it and returns the new
// generation.
func (s *Scheduler) supersede() uint64 {
	s.deliverMu.Lock()
	gen := s.gen.Add(1)
	s.deliverMu.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.taskID, s.cancel, s.done = "", nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return gen
}

// Active returns the task being polled, if a loop is running.
func (s *Scheduler) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return "", false
	}
	select {
	case <-s.done:
		return "", false
	default:
		return s.taskID, true
	}
}

// Done returns a channel closed when the current loop exits, or nil when no
// loop has been started since the last Stop.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Generation returns the current loop generation.
func (s *Scheduler) Generation() uint64 {
	return s.gen.Load()
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, taskID string, done chan struct{}) {
	defer close(done)

	s.metrics.GaugeInc(metrics.ActivePolls.Name)
	defer s.metrics.GaugeDec(metrics.ActivePolls.Name)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if !s.tick(ctx, gen, taskID) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx, gen, taskID) {
				return
			}
		}
	}
}

// tick runs one poll and reports whether the loop should continue.
func (s *Scheduler) tick(ctx context.Context, gen uint64, taskID string) bool {
	timer := metrics.NewTimer(s.metrics, metrics.PollTickDuration.Name)
	defer timer.ObserveDuration()

	u, err := s.fetch(ctx, taskID)
	if ctx.Err() != nil {
		s.metrics.CounterInc(metrics.PollTicksTotal.Name, "result", metrics.ResultStale)
		return false
	}
	if err != nil {
		s.metrics.CounterInc(metrics.PollTicksTotal.Name, "result", metrics.ResultError)
		s.logger.Error("poll of task %s stopped: %v", taskID, err)
		s.deliver(gen, func() {
			if s.onError != nil {
				s.onError(taskID, err)
			}
		})
		return false
	}

	u.Generation = gen
	if !s.deliver(gen, func() {
		if s.onUpdate != nil {
			s.onUpdate(u)
		}
	}) {
		s.metrics.CounterInc(metrics.PollTicksTotal.Name, "result", metrics.ResultStale)
		return false
	}

	if u.Terminal {
		s.metrics.CounterInc(metrics.PollTicksTotal.Name, "result", metrics.ResultTerminal)
		s.logger.Info("task %s reached %s", taskID, u.Task.Status)
		return false
	}
	s.metrics.CounterInc(metrics.PollTicksTotal.Name, "result", metrics.ResultOK)
	return true
}

// deliver runs fn only while gen is current.
func (s *Scheduler) deliver(gen uint64, fn func()) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

// fetch performs the requests of one tick in order.
func (s *Scheduler) fetch(ctx context.Context, taskID string) (*Update, error) {
	const op = "poller.tick"

	task, err := s.client.TaskStatus(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	u := &Update{TaskID: taskID, Task: task}

	if task.Results.HasDiscovery() {
		assets, err := s.client.JSFiles(ctx, taskID)
		if err != nil {
			s.logger.Warn("task %s: asset list unavailable: %v", taskID, err)
		} else {
			u.Assets = assets
		}
	}

	if task.Results.HasEndpoints() {
		u.Endpoints = task.Results.Endpoints
	}

	leaks, err := s.client.Leaks(ctx, taskID)
	switch {
	case err == nil:
		u.Leaks = leaks
	case errors.IsNetworkError(err):
		return nil, errors.Wrap(err, op)
	default:
		if _, ok := client.IsHTTPError(err); ok {
			s.logger.Debug("task %s: no leaks yet: %v", taskID, err)
		} else {
			s.logger.Warn("task %s: leaks unreadable: %v", taskID, err)
		}
	}

	logs, err := s.client.TaskLogs(ctx, taskID)
	if err != nil {
		s.logger.Debug("task %s: no logs yet: %v", taskID, err)
	} else {
		u.Logs = logs
	}

	if task.Results.HasRisk() {
		u.Risk = task.Results.RiskML
	}

	u.Terminal = task.Status.IsTerminal()
	return u, nil
}
