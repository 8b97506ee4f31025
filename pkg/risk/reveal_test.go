package risk

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInterpolate(t *testing.T) {
	total := time.Second
	tests := []struct {
		from, to int
		elapsed  time.Duration
		want     int
	}{
		{0, 85, 0, 0},
		{0, 85, 500 * time.Millisecond, 42},
		{0, 85, 999 * time.Millisecond, 84},
		{0, 85, time.Second, 85},
		{0, 85, 3 * time.Second, 85},
		{40, 85, 500 * time.Millisecond, 62},
		{0, 0, 500 * time.Millisecond, 0},
	}

	for _, tt := range tests {
		if got := Interpolate(tt.from, tt.to, tt.elapsed, total); got != tt.want {
			t.Errorf("Interpolate(%d, %d, %v) = %d, want %d", tt.from, tt.to, tt.elapsed, got, tt.want)
		}
	}
}

func TestInterpolate_NeverExceedsFinal(t *testing.T) {
	for final := 0; final <= 100; final += 7 {
		prev := 0
		for ms := 0; ms <= 1100; ms += 13 {
			v := Interpolate(0, final, time.Duration(ms)*time.Millisecond, time.Second)
			if v > final {
				t.Fatalf("final %d at %dms: value %d exceeds final", final, ms, v)
			}
			if v < prev {
				t.Fatalf("final %d at %dms: value %d decreased from %d", final, ms, v, prev)
			}
			prev = v
		}
	}
}

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) add(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) snapshot() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.frames...)
}

func TestAnimator_Reveal(t *testing.T) {
	a := &Animator{Duration: 100 * time.Millisecond, FrameInterval: 5 * time.Millisecond}
	var log frameLog

	done := a.Reveal(context.Background(), "abc123", 85, ClassDanger, log.add)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not finish")
	}

	frames := log.snapshot()
	if len(frames) < 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	prev := -1
	for i, f := range frames {
		if f.Value > 85 {
			t.Errorf("frame %d value %d exceeds final", i, f.Value)
		}
		if f.Value < prev {
			t.Errorf("frame %d value %d regressed from %d", i, f.Value, prev)
		}
		prev = f.Value
		if f.Final != (i == len(frames)-1) {
			t.Errorf("frame %d Final = %v", i, f.Final)
		}
	}
	last := frames[len(frames)-1]
	if last.Value != 85 || last.Class != ClassDanger {
		t.Errorf("final frame = %+v", last)
	}
}

func TestAnimator_Supersede(t *testing.T) {
	a := &Animator{Duration: 200 * time.Millisecond, FrameInterval: 5 * time.Millisecond}
	var first, second frameLog

	done1 := a.Reveal(context.Background(), "task-1", 90, ClassDanger, first.add)
	time.Sleep(30 * time.Millisecond)
	done2 := a.Reveal(context.Background(), "task-2", 30, ClassSuccess, second.add)
	afterSupersede := len(first.snapshot())

	<-done1
	<-done2

	if got := len(first.snapshot()); got != afterSupersede {
		t.Errorf("superseded reveal emitted %d frames after Reveal returned", got-afterSupersede)
	}
	for _, f := range first.snapshot() {
		if f.Final {
			t.Error("superseded reveal must not emit a final frame")
		}
	}
	frames := second.snapshot()
	if len(frames) == 0 || !frames[len(frames)-1].Final || frames[len(frames)-1].Value != 30 {
		t.Errorf("second reveal frames = %+v", frames)
	}
	for _, f := range frames {
		if f.Key != "task-2" {
			t.Errorf("frame for %q emitted by the second reveal", f.Key)
		}
	}
}

func TestAnimator_SameKeyResumes(t *testing.T) {
	a := &Animator{Duration: 200 * time.Millisecond, FrameInterval: 5 * time.Millisecond}
	var log frameLog

	a.Reveal(context.Background(), "abc123", 85, ClassDanger, log.add)
	time.Sleep(60 * time.Millisecond)
	done := a.Reveal(context.Background(), "abc123", 85, ClassDanger, log.add)
	<-done

	prev := -1
	for i, f := range log.snapshot() {
		if f.Value < prev {
			t.Errorf("frame %d value %d regressed from %d", i, f.Value, prev)
		}
		prev = f.Value
	}
	if prev != 85 {
		t.Errorf("last value = %d, want 85", prev)
	}
}

func TestAnimator_Cancel(t *testing.T) {
	a := &Animator{Duration: time.Second, FrameInterval: 5 * time.Millisecond}
	var log frameLog

	done := a.Reveal(context.Background(), "abc123", 85, ClassDanger, log.add)
	time.Sleep(20 * time.Millisecond)
	a.Cancel()
	n := len(log.snapshot())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled reveal did not stop")
	}
	if len(log.snapshot()) != n {
		t.Error("frames emitted after Cancel")
	}
}
