// Package render writes the monitor's views to a terminal.
//
// Everything here is formatting only. Display state (pages, badges, the
// progress label) is derived by the domain packages and passed in.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sentrixio/scanwatch/pkg/dork"
	"github.com/sentrixio/scanwatch/pkg/pagination"
	"github.com/sentrixio/scanwatch/pkg/progress"
	"github.com/sentrixio/scanwatch/pkg/risk"
	"github.com/sentrixio/scanwatch/pkg/session"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/types"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

const (
	barWidth    = 30
	excerptMax  = 120
	logTail     = 10
	recentTasks = 10
)

type palette struct {
	title   *color.Color
	muted   *color.Color
	accent  *color.Color
	danger  *color.Color
	warning *color.Color
	success *color.Color
}

var palettes = map[state.Theme]palette{
	state.ThemeDark: {
		title:   color.New(color.FgHiWhite, color.Bold),
		muted:   color.New(color.FgHiBlack),
		accent:  color.New(color.FgHiCyan),
		danger:  color.New(color.FgHiRed, color.Bold),
		warning: color.New(color.FgHiYellow),
		success: color.New(color.FgHiGreen),
	},
	state.ThemeLight: {
		title:   color.New(color.FgBlack, color.Bold),
		muted:   color.New(color.FgHiBlack),
		accent:  color.New(color.FgBlue),
		danger:  color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow),
		success: color.New(color.FgGreen),
	},
}

// Renderer writes views to w. It is safe for use by the poll goroutine and
// the command reader at the same time.
type Renderer struct {
	mu sync.Mutex
	w  io.Writer
	p  palette
}

// New creates a renderer with the given theme.
func New(w io.Writer, theme state.Theme) *Renderer {
	r := &Renderer{w: w}
	r.SetTheme(theme)
	return r
}

// SetTheme switches the palette. Unknown themes fall back to dark.
func (r *Renderer) SetTheme(theme state.Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := palettes[theme]
	if !ok {
		p = palettes[state.ThemeDark]
	}
	r.p = p
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) heading(title string) {
	r.printf("\n%s\n", r.p.title.Sprint(title))
}

func (r *Renderer) classColor(c risk.Class) *color.Color {
	switch c {
	case risk.ClassDanger:
		return r.p.danger
	case risk.ClassWarning:
		return r.p.warning
	case risk.ClassSuccess:
		return r.p.success
	default:
		return r.p.muted
	}
}

// Message prints an informational line.
func (r *Renderer) Message(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s\n", r.p.accent.Sprintf(format, args...))
}

// Error prints a visible error line.
func (r *Renderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s %v\n", r.p.danger.Sprint("error:"), err)
}

// Bar returns a textual progress bar for pct.
func Bar(pct int) string {
	pct = max(0, min(100, pct))
	filled := pct * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

// Progress prints the progress line.
func (r *Renderer) Progress(s progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress(s)
}

func (r *Renderer) progress(s progress.Snapshot) {
	if s.Label == "" {
		r.printf("%s %s\n", Bar(0), r.p.muted.Sprint("Waiting for status..."))
		return
	}
	c := r.p.accent
	if s.Status == types.StatusFailed {
		c = r.p.danger
	} else if s.Terminal {
		c = r.p.success
	}
	r.printf("%s %3d%% %s\n", Bar(s.Percent), s.Percent, c.Sprint(s.Label))
}

// Scan prints the full single-scan view.
func (r *Renderer) Scan(v session.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading(fmt.Sprintf("Scan %s  %s", v.TaskID, v.URL))
	if v.Task != nil && v.Task.Progress != "" {
		r.printf("%s\n", r.p.muted.Sprint(v.Task.Progress))
	}
	r.progress(v.Progress)
	if v.Risk != nil {
		r.riskSummary(v.Risk)
	}
	r.assets(v.Assets, v.SeenAssets)
	r.endpoints(v.Endpoints, v.SeenEndpoints)
	r.leaks(v.Leaks, v.Filter, v.SeenLeaks)
	r.logs(v.Logs)
}

// RiskSummary prints the task-level risk line.
func (r *Renderer) RiskSummary(s *types.RiskSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.riskSummary(s)
}

func (r *Renderer) riskSummary(s *types.RiskSummary) {
	c := r.classColor(risk.ClassFor(s.Score, s.Severity))
	r.printf("Risk: %s  (%d leaks: %d high, %d medium, %d low)\n",
		c.Sprintf("%d %s", s.Score, strings.ToUpper(s.Severity)),
		s.TotalLeaks, s.HighRiskCount, s.MediumRiskCount, s.LowRiskCount)
}

// RiskFrame prints one frame of the score reveal.
func (r *Renderer) RiskFrame(f risk.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !f.Final {
		r.printf("\rRisk score: %3d", f.Value)
		return
	}
	r.printf("\rRisk score: %s\n", r.classColor(f.Class).Sprintf("%3d", f.Value))
}

func (r *Renderer) pager(indicator string, prevDisabled, nextDisabled bool) {
	prev, next := "p: prev", "n: next"
	if prevDisabled {
		prev = r.p.muted.Sprint(prev)
	}
	if nextDisabled {
		next = r.p.muted.Sprint(next)
	}
	r.printf("  %s  %s  %s\n", indicator, prev, next)
}

// Assets prints a page of discovered scripts.
func (r *Renderer) Assets(p pagination.Page[types.JSAsset], seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets(p, seen)
}

func (r *Renderer) assets(p pagination.Page[types.JSAsset], seen bool) {
	r.heading(fmt.Sprintf("JavaScript files (%d)", p.Total))
	if !seen {
		r.printf("  %s\n", r.p.muted.Sprint("Waiting for discovery..."))
		return
	}
	for _, a := range p.Items {
		src := r.p.muted.Sprint("inline script")
		if !a.IsInline() {
			src = *a.Src
		}
		when := ""
		if !a.DiscoveredAt.IsZero() {
			when = r.p.muted.Sprint(" " + humanize.Time(a.DiscoveredAt.Time))
		}
		r.printf("  #%-3d %s  %s%s\n", a.Position, r.p.muted.Sprint(a.ID), src, when)
	}
	r.pager(p.Indicator, p.PrevDisabled, p.NextDisabled)
}

// Endpoints prints a page of extracted endpoints.
func (r *Renderer) Endpoints(p pagination.Page[types.Endpoint], seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints(p, seen)
}

func (r *Renderer) endpoints(p pagination.Page[types.Endpoint], seen bool) {
	r.heading(fmt.Sprintf("Endpoints (%d)", p.Total))
	if !seen {
		r.printf("  %s\n", r.p.muted.Sprint("No endpoints yet"))
		return
	}
	for i, e := range p.Items {
		r.printf("  %3d. %s", p.Start+i+1, e.Link)
		if e.Source != "" {
			r.printf("  %s", r.p.muted.Sprint(e.Source))
		}
		r.printf("\n")
	}
	r.pager(p.Indicator, p.PrevDisabled, p.NextDisabled)
}

// Badge returns the coloured risk badge of a leak.
func (r *Renderer) Badge(l types.Leak) string {
	d := risk.DisplayFor(l)
	c := r.classColor(d.Class)
	if d.Pending {
		return c.Sprintf("[%s]", d.Label)
	}
	return c.Sprintf("[%s]", d.Label) + fmt.Sprintf(" Score: %d", d.Score)
}

// Leaks prints a page of the filtered leak view.
func (r *Renderer) Leaks(p pagination.Page[types.Leak], filter string, seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaks(p, filter, seen)
}

func (r *Renderer) leaks(p pagination.Page[types.Leak], filter string, seen bool) {
	r.heading(fmt.Sprintf("Leaks (%d, filter: %s)", p.Total, filter))
	if !seen {
		r.printf("  %s\n", r.p.muted.Sprint("No leaks yet"))
		return
	}
	if p.Total == 0 {
		r.printf("  %s\n", r.p.muted.Sprint("No leaks match this filter"))
		return
	}
	for i, l := range p.Items {
		r.printf("  #%-3d %s  %s  %s\n", p.Start+i+1, r.Badge(l), r.p.accent.Sprint(l.Category), l.Pattern)
		if l.Excerpt != "" {
			r.printf("       %s\n", truncate(l.Excerpt, excerptMax))
		}
		if l.SourceFile != "" {
			r.printf("       %s\n", r.p.muted.Sprint(l.SourceFile))
		}
		if labels := l.LabelsOrEmpty(); len(labels) > 0 {
			r.printf("       labels: %s\n", strings.Join(labels, ", "))
		}
	}
	r.pager(p.Indicator, p.PrevDisabled, p.NextDisabled)
}

// Logs prints the most recent log lines.
func (r *Renderer) Logs(logs []types.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs(logs)
}

func (r *Renderer) logs(logs []types.LogEntry) {
	r.heading("Logs")
	if len(logs) == 0 {
		r.printf("  %s\n", r.p.muted.Sprint("No logs yet"))
		return
	}
	if len(logs) > logTail {
		logs = logs[len(logs)-logTail:]
	}
	for _, e := range logs {
		level := strings.ToUpper(e.Level)
		c := r.p.muted
		switch level {
		case "ERROR":
			c = r.p.danger
		case "WARNING", "WARN":
			c = r.p.warning
		}
		ts := e.Timestamp.Raw
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Local().Format(time.TimeOnly)
		}
		r.printf("  %s %s %-10s %s\n", r.p.muted.Sprint(ts), c.Sprintf("%-7s", level), e.Stage, e.Message)
	}
}

// Home prints the dashboard.
func (r *Renderer) Home(stats *types.Stats, heatmap *types.Heatmap, tasks []types.TaskSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats != nil {
		r.heading(fmt.Sprintf("Scans: %s", humanize.Comma(int64(stats.TotalScans))))
		r.distribution("Status", stats.StatusDistribution)
		r.distribution("Risk", stats.RiskDistribution)
		r.distribution("Top leak categories", stats.TopLeakCategories)
	}
	if heatmap != nil && len(heatmap.Categories) > 0 {
		r.heatmap(heatmap)
	}
	r.tasks(tasks)
}

func (r *Renderer) distribution(title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, m[k]))
	}
	r.printf("  %s: %s\n", r.p.muted.Sprint(title), strings.Join(parts, ", "))
}

func (r *Renderer) heatmap(h *types.Heatmap) {
	r.heading("Leak categories by severity")
	r.printf("  %-24s", "")
	for _, s := range h.Severities {
		r.printf("%8s", s)
	}
	r.printf("\n")
	for _, c := range h.Categories {
		r.printf("  %-24s", truncate(c, 24))
		for _, s := range h.Severities {
			r.printf("%8d", h.Matrix[c][s])
		}
		r.printf("\n")
	}
}

// Tasks prints the recent tasks list.
func (r *Renderer) Tasks(tasks []types.TaskSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks(tasks)
}

func (r *Renderer) tasks(tasks []types.TaskSummary) {
	r.heading("Recent scans")
	if len(tasks) == 0 {
		r.printf("  %s\n", r.p.muted.Sprint("No scans yet"))
		return
	}
	if len(tasks) > recentTasks {
		tasks = tasks[:recentTasks]
	}
	for _, t := range tasks {
		pct, label := progress.Map(t.Status)
		when := t.CreatedAt.Raw
		if !t.CreatedAt.IsZero() {
			when = humanize.Time(t.CreatedAt.Time)
		}
		r.printf("  %s  %-40s %3d%% %-26s %s\n",
			r.p.muted.Sprint(t.ID), truncate(t.URL, 40), pct, label, r.p.muted.Sprint(when))
	}
}

// Queries prints verification suggestions for a leak.
func (r *Renderer) Queries(qs []dork.Query) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("Verification queries")
	if len(qs) == 0 {
		r.printf("  %s\n", r.p.muted.Sprint("No domain to verify"))
		return
	}
	for i, q := range qs {
		r.printf("  %d. %s %s\n", i+1, q.Icon, r.p.accent.Sprint(q.Label))
		if q.URL == "" {
			r.printf("     %s\n", q.Query)
		}
		r.printf("     %s\n", r.p.muted.Sprint(q.SearchURL()))
	}
}

// Lookup prints GitHub code search matches.
func (r *Renderer) Lookup(res *verify.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading(fmt.Sprintf("GitHub code search %s: %s results", res.Query, humanize.Comma(int64(res.Total))))
	if res.Incomplete {
		r.printf("  %s\n", r.p.warning.Sprint("results incomplete"))
	}
	for _, m := range res.Matches {
		r.printf("  %s %s\n     %s\n", r.p.accent.Sprint(m.Repository), m.Path, r.p.muted.Sprint(m.URL))
	}
}

// Explanation prints an explanation response.
func (r *Renderer) Explanation(e *types.Explanation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("Explanation")
	r.printf("%s\n", e.Explanation)
	if e.Authority != "" {
		r.printf("%s\n", r.p.muted.Sprintf("(%s, %s)", e.Role, e.Authority))
	}
}

// AssetContent prints an inspected script.
func (r *Renderer) AssetContent(f *types.JSFileContent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := f.Src
	if src == "" {
		src = "inline script"
	}
	r.heading(fmt.Sprintf("%s (%s)", src, humanize.Bytes(uint64(len(f.Content)))))
	if f.Origin != "" {
		r.printf("%s\n", r.p.muted.Sprint("origin: "+f.Origin))
	}
	r.printf("%s\n", f.Content)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
