// Package router switches the monitor between the home view and the
// single-scan view, owns the monitoring session and resumes the active scan
// after a restart.
//
// The router is the only component that starts or stops polling. Activating
// a scan always builds a fresh session before the first tick, and the
// active-scan marker in the state store is what makes a restarted process
// pick the same scan up again.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sentrixio/scanwatch/pkg/client"
	"github.com/sentrixio/scanwatch/pkg/core"
	"github.com/sentrixio/scanwatch/pkg/dork"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/metrics"
	"github.com/sentrixio/scanwatch/pkg/poller"
	"github.com/sentrixio/scanwatch/pkg/render"
	"github.com/sentrixio/scanwatch/pkg/results"
	"github.com/sentrixio/scanwatch/pkg/risk"
	"github.com/sentrixio/scanwatch/pkg/session"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/types"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

// View is the top-level view being shown.
type View string

const (
	ViewHome View = "home"
	ViewScan View = "scan"
)

// API is the part of the backend client the router uses.
type API interface {
	poller.TaskClient

	Stats(ctx context.Context) (*types.Stats, error)
	CategoryHeatmap(ctx context.Context) (*types.Heatmap, error)
	ListTasks(ctx context.Context, limit int) ([]types.TaskSummary, error)
	StartScan(ctx context.Context, target string) (*types.ScanStarted, error)
	JSFile(ctx context.Context, jsID string) (*types.JSFileContent, error)
	StopScan(ctx context.Context, taskID string) (*types.ActionResult, error)
	DeleteTask(ctx context.Context, taskID string) (*types.ActionResult, error)
	DeleteAllTasks(ctx context.Context) (*types.ActionResult, error)
	Explain(ctx context.Context, req types.ExplainRequest) (*types.Explanation, error)
}

var _ API = (*client.Client)(nil)

// Store persists the active-scan marker and the theme.
type Store interface {
	ActiveScan(ctx context.Context) (*types.ActiveScan, error)
	SetActiveScan(ctx context.Context, marker types.ActiveScan) error
	ClearActiveScan(ctx context.Context) error
	Theme(ctx context.Context) (state.Theme, error)
	SetTheme(ctx context.Context, t state.Theme) error
}

var _ Store = (*state.Store)(nil)

// Confirmer asks the operator to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Config configures a Router.
type Config struct {
	Client    API
	Store     Store
	Renderer  *render.Renderer
	Confirmer Confirmer

	// Verifier enables GitHub lookups; nil disables them.
	Verifier *verify.Verifier

	// PollInterval overrides poller.DefaultInterval.
	PollInterval time.Duration

	// Animator overrides the default score reveal animator.
	Animator *risk.Animator

	Logger  core.Logger
	Metrics metrics.Collector
}

// Home is the data behind the home view. Fields whose fetch failed are nil.
type Home struct {
	Stats   *types.Stats
	Heatmap *types.Heatmap
	Tasks   []types.TaskSummary
}

// Router owns the current view and session.
type Router struct {
	client    API
	store     Store
	render    *render.Renderer
	confirmer Confirmer
	verifier  *verify.Verifier
	logger    core.Logger

	scheduler *poller.Scheduler
	animator  *risk.Animator
	reveals   *results.Reveals

	mu      sync.Mutex
	view    View
	session *session.Session
	home    *Home
	ctx     context.Context
	lastErr error
}

// New creates a router in the home view.
func New(cfg *Config) (*Router, error) {
	if cfg == nil || cfg.Client == nil || cfg.Store == nil || cfg.Renderer == nil {
		return nil, errors.E(errors.KindInvalidInput, "router.New", "client, store and renderer are required")
	}

	r := &Router{
		client:    cfg.Client,
		store:     cfg.Store,
		render:    cfg.Renderer,
		confirmer: cfg.Confirmer,
		verifier:  cfg.Verifier,
		logger:    core.OrNop(cfg.Logger),
		animator:  cfg.Animator,
		reveals:   results.NewReveals(),
		view:      ViewHome,
		ctx:       context.Background(),
	}
	if r.animator == nil {
		r.animator = risk.NewAnimator()
	}
	if r.confirmer == nil {
		r.confirmer = ConfirmFunc(func(string) bool { return false })
	}

	r.scheduler = poller.New(cfg.Client, &poller.Config{
		Interval: cfg.PollInterval,
		OnUpdate: r.onUpdate,
		OnError:  r.onError,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	return r, nil
}

// Init restores the previous state: the scan named by the marker is resumed,
// otherwise the home view is loaded. ctx bounds all polling started later.
func (r *Router) Init(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	if theme, err := r.store.Theme(ctx); err == nil {
		r.render.SetTheme(theme)
	}

	marker, err := r.store.ActiveScan(ctx)
	if err != nil {
		r.logger.Warn("reading active scan marker: %v", err)
	}
	if marker != nil {
		r.logger.Info("resuming task %s", marker.TaskID)
		return r.Resume(ctx, *marker)
	}
	_, err = r.LoadHome(ctx)
	return err
}

// LoadHome fetches and renders the home view. Each part is optional; a
// failed part is logged and left out.
func (r *Router) LoadHome(ctx context.Context) (*Home, error) {
	h := &Home{}
	var err error

	if h.Stats, err = r.client.Stats(ctx); err != nil {
		r.logger.Warn("loading stats: %v", err)
	}
	if h.Heatmap, err = r.client.CategoryHeatmap(ctx); err != nil {
		r.logger.Warn("loading heatmap: %v", err)
	}
	if h.Tasks, err = r.client.ListTasks(ctx, client.DefaultTaskLimit); err != nil {
		r.logger.Warn("loading recent tasks: %v", err)
	}

	r.mu.Lock()
	r.home = h
	r.mu.Unlock()

	r.render.Home(h.Stats, h.Heatmap, h.Tasks)
	return h, nil
}

// StartScan submits target and starts monitoring the new task. An empty
// target is rejected without a request.
func (r *Router) StartScan(ctx context.Context, target string) (string, error) {
	const op = "router.StartScan"

	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.Wrap(errors.ErrEmptyURL, op)
	}

	started, err := r.client.StartScan(ctx, target)
	if err != nil {
		r.render.Error(fmt.Errorf("starting scan: %s", client.Message(err)))
		return "", errors.Wrap(err, op)
	}

	marker := types.ActiveScan{TaskID: started.TaskID, URL: target}
	if err := r.store.SetActiveScan(ctx, marker); err != nil {
		r.logger.Warn("persisting active scan marker: %v", err)
	}
	r.render.Message("Scan %s started for %s", started.TaskID, target)

	if err := r.activate(marker); err != nil {
		return "", err
	}
	return started.TaskID, nil
}

// Resume monitors an already submitted task without re-submitting it.
func (r *Router) Resume(ctx context.Context, marker types.ActiveScan) error {
	if marker.TaskID == "" {
		return errors.E(errors.KindInvalidInput, "router.Resume", "task ID is required")
	}
	if err := r.store.SetActiveScan(ctx, marker); err != nil {
		r.logger.Warn("persisting active scan marker: %v", err)
	}
	return r.activate(marker)
}

// activate replaces the session and starts polling its task.
func (r *Router) activate(marker types.ActiveScan) error {
	r.scheduler.Stop()
	r.animator.Cancel()

	sess := session.New(marker.TaskID, marker.URL)

	r.mu.Lock()
	r.session = sess
	r.view = ViewScan
	r.lastErr = nil
	ctx := r.ctx
	r.mu.Unlock()

	r.logger.Debug("session %s monitoring task %s", sess.ID, marker.TaskID)
	r.render.Scan(sess.View())
	return r.scheduler.Start(ctx, marker.TaskID)
}

// GoHome stops monitoring, forgets the active scan and shows the home view.
func (r *Router) GoHome(ctx context.Context) error {
	r.scheduler.Stop()
	r.animator.Cancel()

	if err := r.store.ClearActiveScan(ctx); err != nil {
		r.logger.Warn("clearing active scan marker: %v", err)
	}

	r.mu.Lock()
	r.session = nil
	r.view = ViewHome
	r.mu.Unlock()

	_, err := r.LoadHome(ctx)
	return err
}

func (r *Router) onUpdate(u *poller.Update) {
	r.mu.Lock()
	sess := r.session
	ctx := r.ctx
	r.mu.Unlock()
	if sess == nil || sess.TaskID != u.TaskID {
		return
	}

	changes, err := sess.Apply(u)
	if err != nil {
		r.logger.Error("applying update: %v", err)
		return
	}
	v := sess.View()

	if changes.Any() {
		r.render.Scan(v)
	} else {
		r.render.Progress(changes.Progress)
	}

	if changes.Risk && v.Risk != nil && r.reveals.First(u.TaskID) {
		class := risk.ClassFor(v.Risk.Score, v.Risk.Severity)
		r.animator.Reveal(ctx, u.TaskID, v.Risk.Score, class, r.render.RiskFrame)
	}

	if changes.Terminal {
		r.render.Message("%s", changes.Progress.Label)
	}
}

func (r *Router) onError(taskID string, err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	r.render.Error(fmt.Errorf("monitoring of %s stopped: %w", taskID, err))
}

// CurrentView returns the view being shown.
func (r *Router) CurrentView() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Session returns the display state of the active session.
func (r *Router) Session() (session.View, bool) {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return session.View{}, false
	}
	return sess.View(), true
}

// LastError returns the error that stopped the last poll loop, if any.
func (r *Router) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// PollDone returns a channel closed when the current poll loop exits, or
// nil when nothing is polling.
func (r *Router) PollDone() <-chan struct{} {
	return r.scheduler.Done()
}

// Refresh re-renders the current view from local state.
func (r *Router) Refresh() {
	r.mu.Lock()
	sess, home := r.session, r.home
	r.mu.Unlock()

	switch {
	case sess != nil:
		r.render.Scan(sess.View())
	case home != nil:
		r.render.Home(home.Stats, home.Heatmap, home.Tasks)
	}
}

func (r *Router) activeSession(op string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, errors.Wrap(errors.ErrNoActiveScan, op)
	}
	return r.session, nil
}

// StopScan asks the backend to revoke the active scan. Polling continues
// until the task reports "stopped".
func (r *Router) StopScan(ctx context.Context) error {
	const op = "router.StopScan"
	sess, err := r.activeSession(op)
	if err != nil {
		return err
	}
	res, err := r.client.StopScan(ctx, sess.TaskID)
	if err != nil {
		r.render.Error(fmt.Errorf("stopping scan: %s", client.Message(err)))
		return errors.Wrap(err, op)
	}
	r.render.Message("Stop requested for %s", res.TaskID)
	return nil
}

// DeleteTask deletes one task after confirmation. Deleting the monitored
// task returns to the home view.
func (r *Router) DeleteTask(ctx context.Context, taskID string) error {
	const op = "router.DeleteTask"
	if !r.confirmer.Confirm(fmt.Sprintf("Delete scan %s and all its results?", taskID)) {
		return errors.Wrap(errors.ErrDeclined, op)
	}
	if _, err := r.client.DeleteTask(ctx, taskID); err != nil {
		r.render.Error(fmt.Errorf("deleting %s: %s", taskID, client.Message(err)))
		return errors.Wrap(err, op)
	}
	r.render.Message("Deleted %s", taskID)

	r.mu.Lock()
	active := r.session != nil && r.session.TaskID == taskID
	view := r.view
	r.mu.Unlock()

	if active {
		return r.GoHome(ctx)
	}
	if view == ViewHome {
		_, err := r.LoadHome(ctx)
		return err
	}
	return nil
}

// DeleteAll deletes every task after confirmation and returns home.
func (r *Router) DeleteAll(ctx context.Context) error {
	const op = "router.DeleteAll"
	if !r.confirmer.Confirm("Delete ALL scans and results? This cannot be undone.") {
		return errors.Wrap(errors.ErrDeclined, op)
	}
	res, err := r.client.DeleteAllTasks(ctx)
	if err != nil {
		r.render.Error(fmt.Errorf("deleting all scans: %s", client.Message(err)))
		return errors.Wrap(err, op)
	}
	if res.Message != "" {
		r.render.Message("%s", res.Message)
	}
	return r.GoHome(ctx)
}

// SetFilter changes the leak filter of the active session and shows the
// first page of the filtered view.
func (r *Router) SetFilter(filter string) (string, error) {
	sess, err := r.activeSession("router.SetFilter")
	if err != nil {
		return "", err
	}
	f := sess.SetFilter(filter)
	v := sess.View()
	r.render.Leaks(v.Leaks, v.Filter, v.SeenLeaks)
	return f, nil
}

// ChangePage moves a category's cursor by delta and renders that page.
func (r *Router) ChangePage(c results.Category, delta int) (int, error) {
	sess, err := r.activeSession("router.ChangePage")
	if err != nil {
		return 0, err
	}
	page, err := sess.ChangePage(c, delta)
	if err != nil {
		return 0, err
	}
	v := sess.View()
	switch c {
	case results.CategoryAssets:
		r.render.Assets(v.Assets, v.SeenAssets)
	case results.CategoryEndpoints:
		r.render.Endpoints(v.Endpoints, v.SeenEndpoints)
	case results.CategoryLeaks:
		r.render.Leaks(v.Leaks, v.Filter, v.SeenLeaks)
	}
	return page, nil
}

// InspectAsset fetches and shows one script's content.
func (r *Router) InspectAsset(ctx context.Context, jsID string) (*types.JSFileContent, error) {
	f, err := r.client.JSFile(ctx, jsID)
	if err != nil {
		r.render.Error(fmt.Errorf("loading script %s: %s", jsID, client.Message(err)))
		return nil, errors.Wrap(err, "router.InspectAsset")
	}
	r.render.AssetContent(f)
	return f, nil
}

// Explain requests a plain-language explanation of the n-th leak of the
// filtered view.
func (r *Router) Explain(ctx context.Context, n int) (*types.Explanation, error) {
	const op = "router.Explain"
	sess, err := r.activeSession(op)
	if err != nil {
		return nil, err
	}
	l, err := sess.FilteredLeak(n)
	if err != nil {
		return nil, err
	}
	req, err := risk.ExplainRequest(l)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	e, err := r.client.Explain(ctx, req)
	if err != nil {
		r.render.Error(fmt.Errorf("explanation unavailable: %s", client.Message(err)))
		return nil, errors.Wrap(err, op)
	}
	r.render.Explanation(e)
	return e, nil
}

// Queries shows the verification queries of the n-th leak of the filtered
// view.
func (r *Router) Queries(n int) ([]dork.Query, error) {
	sess, err := r.activeSession("router.Queries")
	if err != nil {
		return nil, err
	}
	l, err := sess.FilteredLeak(n)
	if err != nil {
		return nil, err
	}
	qs := dork.Generate(l, l.MetadataOrEmpty())
	r.render.Queries(qs)
	return qs, nil
}

// Lookup runs the GitHub code search for the n-th leak of the filtered view.
func (r *Router) Lookup(ctx context.Context, n int) (*verify.Result, error) {
	const op = "router.Lookup"
	if r.verifier == nil {
		return nil, errors.E(errors.KindInvalidInput, op, "GitHub lookup is not configured")
	}
	sess, err := r.activeSession(op)
	if err != nil {
		return nil, err
	}
	l, err := sess.FilteredLeak(n)
	if err != nil {
		return nil, err
	}
	return LookupLeak(ctx, r.verifier, r.render, l)
}

// LookupLeak runs the GitHub code search for a leak's domain and renders the
// result.
func LookupLeak(ctx context.Context, v *verify.Verifier, rd *render.Renderer, l types.Leak) (*verify.Result, error) {
	const op = "router.Lookup"
	meta := l.MetadataOrEmpty()
	domain := dork.Domain(l, meta)
	if domain == "" {
		return nil, errors.E(errors.KindNotFound, op, "leak has no domain to look up")
	}
	res, err := v.SearchDomain(ctx, domain)
	if err != nil {
		rd.Error(err)
		return nil, err
	}
	rd.Lookup(res)
	return res, nil
}

// Theme returns the stored theme.
func (r *Router) Theme(ctx context.Context) (state.Theme, error) {
	return r.store.Theme(ctx)
}

// SetTheme stores the theme and applies it to the renderer.
func (r *Router) SetTheme(ctx context.Context, theme string) (state.Theme, error) {
	t, err := state.ParseTheme(theme)
	if err != nil {
		return "", err
	}
	if err := r.store.SetTheme(ctx, t); err != nil {
		return "", err
	}
	r.render.SetTheme(t)
	r.Refresh()
	return t, nil
}

// Close stops polling and any running reveal. The marker is kept so the
// next start resumes the scan.
func (r *Router) Close() {
	r.scheduler.Stop()
	r.animator.Cancel()
}
