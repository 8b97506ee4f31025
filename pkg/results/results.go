// Package results accumulates the partial outputs of a monitored scan and
// reports, per category, whether a new snapshot differs from the last one so
// only changed categories are re-rendered.
//
// Setters are only called with successfully fetched snapshots; a failed
// fetch leaves the previous value in place.
package results

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/sentrixio/scanwatch/pkg/types"
)

// Category names a result category.
type Category string

const (
	CategoryAssets    Category = "assets"
	CategoryEndpoints Category = "endpoints"
	CategoryLeaks     Category = "leaks"
	CategoryLogs      Category = "logs"
	CategoryRisk      Category = "risk"
)

// Accumulator holds the latest snapshot of each category for one session.
type Accumulator struct {
	mu sync.RWMutex

	task *types.Task

	assets     []types.JSAsset
	assetsSeen bool

	endpoints     []types.Endpoint
	endpointsHash uint64
	endpointsSeen bool

	leaks     []types.Leak
	leaksHash uint64
	leaksSeen bool

	logs     []types.LogEntry
	logsSeen bool

	risk *types.RiskSummary
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// SetTask stores the latest task snapshot.
func (a *Accumulator) SetTask(t *types.Task) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.task = t
}

// Task returns the latest task snapshot, or nil before the first poll.
func (a *Accumulator) Task() *types.Task {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.task
}

// SetAssets stores the complete asset set. It reports a change on the first
// observation and whenever the count differs.
func (a *Accumulator) SetAssets(assets []types.JSAsset) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := !a.assetsSeen || len(assets) != len(a.assets)
	if changed {
		a.assets = assets
	}
	a.assetsSeen = true
	return changed
}

// SetEndpoints replaces the endpoint set.
func (a *Accumulator) SetEndpoints(endpoints []types.Endpoint) bool {
	h := digest(endpoints)
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := !a.endpointsSeen || h != a.endpointsHash || len(endpoints) != len(a.endpoints)
	a.endpoints, a.endpointsHash, a.endpointsSeen = endpoints, h, true
	return changed
}

// SetLeaks replaces the leak set.
func (a *Accumulator) SetLeaks(leaks []types.Leak) bool {
	h := digest(leaks)
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := !a.leaksSeen || h != a.leaksHash || len(leaks) != len(a.leaks)
	a.leaks, a.leaksHash, a.leaksSeen = leaks, h, true
	return changed
}

// SetLogs replaces the log list. Logs only grow, so a count change is a
// content change.
func (a *Accumulator) SetLogs(logs []types.LogEntry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := !a.logsSeen || len(logs) != len(a.logs)
	a.logs, a.logsSeen = logs, true
	return changed
}

// SetRisk stores the task-level risk summary and reports whether it differs
// from the previous one.
func (a *Accumulator) SetRisk(r *types.RiskSummary) bool {
	if r == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := a.risk == nil || *a.risk != *r
	a.risk = r
	return changed
}

// Seen reports whether a category has been observed in this session.
func (a *Accumulator) Seen(c Category) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch c {
	case CategoryAssets:
		return a.assetsSeen
	case CategoryEndpoints:
		return a.endpointsSeen
	case CategoryLeaks:
		return a.leaksSeen
	case CategoryLogs:
		return a.logsSeen
	case CategoryRisk:
		return a.risk != nil
	default:
		return false
	}
}

// Assets returns the current asset set.
func (a *Accumulator) Assets() []types.JSAsset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.assets
}

// Endpoints returns the current endpoint set.
func (a *Accumulator) Endpoints() []types.Endpoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.endpoints
}

// Leaks returns the current leak set.
func (a *Accumulator) Leaks() []types.Leak {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.leaks
}

// Logs returns the current log list.
func (a *Accumulator) Logs() []types.LogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logs
}

// Risk returns the current risk summary, or nil.
func (a *Accumulator) Risk() *types.RiskSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.risk
}

func digest(v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// Reveals remembers which tasks already had their risk score revealed in
// this process. It outlives sessions so resuming a task does not replay the
// animation.
type Reveals struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewReveals returns an empty reveal set.
func NewReveals() *Reveals {
	return &Reveals{seen: make(map[string]struct{})}
}

// First reports true exactly once per task ID.
func (r *Reveals) First(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[taskID]; ok {
		return false
	}
	r.seen[taskID] = struct{}{}
	return true
}
