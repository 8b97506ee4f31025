package risk

import (
	"context"
	"sync"
	"time"
)

const (
	// RevealDuration is the wall-clock length of a score reveal.
	RevealDuration = 1000 * time.Millisecond

	// DefaultFrameInterval paces reveal frames.
	DefaultFrameInterval = 50 * time.Millisecond
)

// Frame is one step of a score reveal.
type Frame struct {
	Key   string
	Value int
	Final bool
	Class Class // set on the final frame only
}

// Interpolate returns the value shown after elapsed of total when counting
// from -> to. The result never passes to and is exactly to once elapsed
// reaches total.
func Interpolate(from, to int, elapsed, total time.Duration) int {
	if elapsed >= total || total <= 0 {
		return to
	}
	if elapsed <= 0 {
		return from
	}
	v := from + int(int64(to-from)*int64(elapsed)/int64(total))
	if from <= to {
		return min(v, to)
	}
	return max(v, to)
}

// Animator runs score reveals. A new Reveal supersedes the one in flight;
// once Reveal returns, the superseded reveal emits nothing more.
//
// emit is called with the animator's lock held and must not call back into
// the Animator.
type Animator struct {
	Duration      time.Duration
	FrameInterval time.Duration

	mu      sync.Mutex
	gen     uint64
	key     string
	shown   int
	running bool
}

// NewAnimator returns an animator with the default duration and pacing.
func NewAnimator() *Animator {
	return &Animator{Duration: RevealDuration, FrameInterval: DefaultFrameInterval}
}

// Reveal animates key's score up to final and commits class on the last
// frame. When it supersedes an in-flight reveal of the same key, counting
// resumes from the value already shown so the display does not jump back.
// The returned channel is closed when this reveal ends, superseded or not.
func (a *Animator) Reveal(ctx context.Context, key string, final int, class Class, emit func(Frame)) <-chan struct{} {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	from := 0
	if a.running && a.key == key {
		from = min(a.shown, final)
	}
	a.key, a.shown, a.running = key, from, true
	done := make(chan struct{})
	duration, interval := a.Duration, a.FrameInterval
	a.mu.Unlock()

	if duration <= 0 {
		duration = RevealDuration
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	go a.run(ctx, gen, from, final, class, duration, interval, emit, done)
	return done
}

func (a *Animator) run(ctx context.Context, gen uint64, from, final int, class Class, duration, interval time.Duration, emit func(Frame), done chan struct{}) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		elapsed := time.Since(start)
		if !a.emit(gen, from, final, class, elapsed, duration, emit) {
			return
		}
		select {
		case <-ctx.Done():
			a.stop(gen)
			return
		case <-ticker.C:
		}
	}
}

// emit sends one frame if gen is still current and reports whether the
// reveal should continue.
func (a *Animator) emit(gen uint64, from, final int, class Class, elapsed, duration time.Duration, emit func(Frame)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return false
	}

	v := Interpolate(from, final, elapsed, duration)
	if v < a.shown && from <= final {
		v = a.shown
	}
	a.shown = v

	if elapsed >= duration {
		a.running = false
		emit(Frame{Key: a.key, Value: final, Final: true, Class: class})
		return false
	}
	emit(Frame{Key: a.key, Value: v})
	return true
}

func (a *Animator) stop(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen == a.gen {
		a.running = false
	}
}

// Cancel supersedes any in-flight reveal without starting a new one.
func (a *Animator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.running = false
}
