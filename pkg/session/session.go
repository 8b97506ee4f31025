// Package session holds the state of one monitoring session: the result
// accumulator, the page cursors, the progress tracker and the leak filter.
//
// A fresh Session is created every time a scan becomes active, so nothing
// from a previous task leaks into the next one.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/pagination"
	"github.com/sentrixio/scanwatch/pkg/poller"
	"github.com/sentrixio/scanwatch/pkg/progress"
	"github.com/sentrixio/scanwatch/pkg/results"
	"github.com/sentrixio/scanwatch/pkg/risk"
	"github.com/sentrixio/scanwatch/pkg/types"
)

// Session is the mutable state of one monitored task.
type Session struct {
	ID        string
	TaskID    string
	URL       string
	StartedAt time.Time

	mu        sync.Mutex
	results   *results.Accumulator
	assets    *pagination.Paginator[types.JSAsset]
	endpoints *pagination.Paginator[types.Endpoint]
	leaks     *pagination.Paginator[types.Leak] // filtered view
	progress  *progress.Tracker
	filter    string
}

// New creates an empty session for taskID with every cursor on page 1.
func New(taskID, url string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		URL:       url,
		StartedAt: time.Now(),
		results:   results.New(),
		assets:    pagination.New[types.JSAsset](pagination.DefaultPageSize),
		endpoints: pagination.New[types.Endpoint](pagination.DefaultPageSize),
		leaks:     pagination.New[types.Leak](pagination.DefaultPageSize),
		progress:  progress.NewTracker(),
		filter:    risk.FilterAll,
	}
}

// Changes lists what an update changed.
type Changes struct {
	Progress  progress.Snapshot
	Assets    bool
	Endpoints bool
	Leaks     bool
	Logs      bool
	Risk      bool
	Terminal  bool
}

// Any reports whether any category changed.
func (c Changes) Any() bool {
	return c.Assets || c.Endpoints || c.Leaks || c.Logs || c.Risk
}

// Apply merges one poll update. Categories the update did not carry keep
// their previous value.
func (s *Session) Apply(u *poller.Update) (Changes, error) {
	if u.TaskID != s.TaskID {
		return Changes{}, errors.E(errors.KindInternal, "session.Apply",
			fmt.Sprintf("update for %s applied to session of %s", u.TaskID, s.TaskID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var c Changes
	s.results.SetTask(u.Task)
	c.Progress = s.progress.Observe(u.Task.Status)
	c.Terminal = u.Terminal

	if u.Assets != nil && s.results.SetAssets(u.Assets) {
		s.assets.SetItems(u.Assets)
		c.Assets = true
	}
	if u.Endpoints != nil && s.results.SetEndpoints(u.Endpoints) {
		s.endpoints.SetItems(u.Endpoints)
		c.Endpoints = true
	}
	if u.Leaks != nil && s.results.SetLeaks(u.Leaks) {
		s.leaks.SetItems(risk.Filter(u.Leaks, s.filter))
		c.Leaks = true
	}
	if u.Logs != nil && s.results.SetLogs(u.Logs) {
		c.Logs = true
	}
	if u.Risk != nil && s.results.SetRisk(u.Risk) {
		c.Risk = true
	}
	return c, nil
}

// SetFilter changes the leak filter, re-derives the filtered view and moves
// the leak cursor back to page 1.
func (s *Session) SetFilter(filter string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = risk.NormalizeFilter(filter)
	s.leaks.SetItems(risk.Filter(s.results.Leaks(), s.filter))
	s.leaks.Reset()
	return s.filter
}

// Filter returns the active leak filter.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// ChangePage moves the cursor of a paginated category and returns the new
// page number. The cursor is not clamped.
func (s *Session) ChangePage(c results.Category, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c {
	case results.CategoryAssets:
		return s.assets.Change(delta), nil
	case results.CategoryEndpoints:
		return s.endpoints.Change(delta), nil
	case results.CategoryLeaks:
		return s.leaks.Change(delta), nil
	default:
		return 0, errors.E(errors.KindInvalidInput, "session.ChangePage",
			fmt.Sprintf("category %q is not paginated", c))
	}
}

// View is a consistent read-only snapshot for rendering.
type View struct {
	SessionID string
	TaskID    string
	URL       string
	Task      *types.Task
	Progress  progress.Snapshot
	Filter    string

	Assets    pagination.Page[types.JSAsset]
	Endpoints pagination.Page[types.Endpoint]
	Leaks     pagination.Page[types.Leak]
	Logs      []types.LogEntry
	Risk      *types.RiskSummary

	// AllLeaks is the unfiltered set, for counts and lookups by index.
	AllLeaks []types.Leak

	SeenAssets    bool
	SeenEndpoints bool
	SeenLeaks     bool
	SeenLogs      bool
}

// View returns the current display state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, _ := s.progress.Current()
	return View{
		SessionID:     s.ID,
		TaskID:        s.TaskID,
		URL:           s.URL,
		Task:          s.results.Task(),
		Progress:      snap,
		Filter:        s.filter,
		Assets:        s.assets.Render(),
		Endpoints:     s.endpoints.Render(),
		Leaks:         s.leaks.Render(),
		Logs:          s.results.Logs(),
		Risk:          s.results.Risk(),
		AllLeaks:      s.results.Leaks(),
		SeenAssets:    s.results.Seen(results.CategoryAssets),
		SeenEndpoints: s.results.Seen(results.CategoryEndpoints),
		SeenLeaks:     s.results.Seen(results.CategoryLeaks),
		SeenLogs:      s.results.Seen(results.CategoryLogs),
	}
}

// FilteredLeak returns the leak at 1-based position n of the filtered view.
func (s *Session) FilteredLeak(n int) (types.Leak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.leaks.Items()
	if n < 1 || n > len(items) {
		return types.Leak{}, errors.E(errors.KindNotFound, "session.FilteredLeak",
			fmt.Sprintf("no leak #%d (%d shown)", n, len(items)))
	}
	return items[n-1], nil
}

// Asset returns the asset with the given ID from the accumulated set.
func (s *Session) Asset(id string) (types.JSAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.results.Assets() {
		if a.ID == id {
			return a, true
		}
	}
	return types.JSAsset{}, false
}
