package progress

import (
	"testing"

	"github.com/sentrixio/scanwatch/pkg/types"
)

func TestMap(t *testing.T) {
	tests := []struct {
		status    types.Status
		wantPct   int
		wantLabel string
	}{
		{types.StatusQueued, 10, "Scan Queued"},
		{types.StatusRunning, 25, "Scan Running"},
		{types.StatusJSDiscoveryDone, 50, "JS Discovery Complete"},
		{types.StatusLeakDetectionDone, 70, "Leak Detection Complete"},
		{types.StatusValidationDone, 85, "Validation Complete"},
		{types.StatusOSINTCorrelationDone, 92, "OSINT Correlation Complete"},
		{types.StatusFinished, 100, "Scan Completed"},
		{types.StatusFailed, 100, "Scan Failed"},
		{types.StatusStopped, 100, "Scan Stopped"},
		{"risk_scoring", UnknownPercent, "RISK_SCORING"},
		{"", UnknownPercent, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			pct, label := Map(tt.status)
			if pct != tt.wantPct || label != tt.wantLabel {
				t.Errorf("Map(%q) = (%d, %q), want (%d, %q)", tt.status, pct, label, tt.wantPct, tt.wantLabel)
			}
		})
	}
}

func TestStages_NonDecreasing(t *testing.T) {
	for i := 1; i < len(Stages); i++ {
		if Stages[i].Percent < Stages[i-1].Percent {
			t.Errorf("%s (%d) < %s (%d)", Stages[i].Status, Stages[i].Percent, Stages[i-1].Status, Stages[i-1].Percent)
		}
	}
}

func TestTracker_NeverRegresses(t *testing.T) {
	sequences := [][]types.Status{
		{types.StatusQueued, types.StatusRunning, types.StatusJSDiscoveryDone, types.StatusFinished},
		{types.StatusLeakDetectionDone, types.StatusRunning, types.StatusQueued, types.StatusLeakDetectionDone},
		{types.StatusValidationDone, "mystery", types.StatusJSDiscoveryDone, types.StatusValidationDone},
		{types.StatusRunning, types.StatusRunning, types.StatusRunning},
		{"mystery", types.StatusQueued, types.StatusRunning},
	}

	for _, seq := range sequences {
		tr := NewTracker()
		last := -1
		for _, st := range seq {
			snap := tr.Observe(st)
			if snap.Percent < last {
				t.Errorf("sequence %v: progress regressed from %d to %d at %q", seq, last, snap.Percent, st)
			}
			last = snap.Percent
		}
	}
}

func TestTracker_KeepsClampedLabel(t *testing.T) {
	tr := NewTracker()
	tr.Observe(types.StatusLeakDetectionDone)
	snap := tr.Observe(types.StatusRunning)

	if snap.Percent != 70 || snap.Label != "Leak Detection Complete" {
		t.Errorf("snapshot = %+v, want 70/Leak Detection Complete", snap)
	}
	if snap.Status != types.StatusLeakDetectionDone {
		t.Errorf("Status = %s", snap.Status)
	}
}

func TestTracker_Terminal(t *testing.T) {
	tr := NewTracker()
	tr.Observe(types.StatusValidationDone)
	snap := tr.Observe(types.StatusFailed)
	if !snap.Terminal || snap.Percent != 100 || snap.Label != "Scan Failed" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Current(); ok {
		t.Error("Current() should report no observation on a new tracker")
	}
	tr.Observe(types.StatusFinished)
	tr.Reset()
	if _, ok := tr.Current(); ok {
		t.Error("Current() should report no observation after Reset")
	}
	if snap := tr.Observe(types.StatusQueued); snap.Percent != 10 {
		t.Errorf("after Reset, Observe(queued) = %d, want 10", snap.Percent)
	}
}
