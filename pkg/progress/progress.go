// Package progress maps pipeline statuses to a completion percentage and
// label, and clamps the displayed value so it never regresses within one
// monitoring session.
package progress

import (
	"strings"
	"sync"

	"github.com/sentrixio/scanwatch/pkg/types"
)

// UnknownPercent is reported for statuses outside the stage table.
const UnknownPercent = 20

// Stage is one row of the stage table.
type Stage struct {
	Status  types.Status
	Percent int
	Label   string
}

// Stages lists the known statuses in canonical order. Percentages are
// non-decreasing along the list.
var Stages = []Stage{
	{types.StatusQueued, 10, "Scan Queued"},
	{types.StatusRunning, 25, "Scan Running"},
	{types.StatusJSDiscoveryDone, 50, "JS Discovery Complete"},
	{types.StatusLeakDetectionDone, 70, "Leak Detection Complete"},
	{types.StatusValidationDone, 85, "Validation Complete"},
	{types.StatusOSINTCorrelationDone, 92, "OSINT Correlation Complete"},
	{types.StatusFinished, 100, "Scan Completed"},
	{types.StatusFailed, 100, "Scan Failed"},
	{types.StatusStopped, 100, "Scan Stopped"},
}

var byStatus = func() map[types.Status]Stage {
	m := make(map[types.Status]Stage, len(Stages))
	for _, s := range Stages {
		m[s.Status] = s
	}
	return m
}()

// Map returns the percentage and label for status. Unknown statuses get
// UnknownPercent and the uppercased status as label.
func Map(status types.Status) (int, string) {
	if s, ok := byStatus[status]; ok {
		return s.Percent, s.Label
	}
	return UnknownPercent, strings.ToUpper(string(status))
}

// Snapshot is the value a Tracker displays.
type Snapshot struct {
	Percent  int
	Label    string
	Status   types.Status
	Terminal bool
}

// Tracker clamps progress to the highest percentage seen since the last
// Reset. When a lower percentage is observed the previous snapshot is kept
// whole, label included.
type Tracker struct {
	mu      sync.Mutex
	current Snapshot
	seen    bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe folds status into the tracker and returns the snapshot to display.
func (t *Tracker) Observe(status types.Status) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	pct, label := Map(status)
	next := Snapshot{Percent: pct, Label: label, Status: status, Terminal: status.IsTerminal()}

	if !t.seen || pct >= t.current.Percent {
		t.current = next
	}
	t.seen = true
	return t.current
}

// Current returns the last snapshot; ok is false before the first Observe.
func (t *Tracker) Current() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.seen
}

// Reset clears the tracker for a new monitoring session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Snapshot{}
	t.seen = false
}
