// Package risk derives the display state of leaks: the severity filter,
// the badge class, the pending/scored state, the score reveal animation and
// the explanation payload.
package risk

import (
	"strings"

	"github.com/sentrixio/scanwatch/pkg/severity"
	"github.com/sentrixio/scanwatch/pkg/types"
)

// FilterAll passes every leak.
const FilterAll = "all"

// Bucket returns the filter bucket of a leak: its lowercased risk severity,
// or "low" when risk analysis has not run yet.
func Bucket(l types.Leak) string {
	if l.Risk == nil || l.Risk.Severity == "" {
		return string(severity.Low)
	}
	return strings.ToLower(l.Risk.Severity)
}

// NormalizeFilter lowercases and trims a filter; empty means FilterAll.
func NormalizeFilter(filter string) string {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" {
		return FilterAll
	}
	return f
}

// Filter returns the leaks whose bucket equals filter. FilterAll returns
// leaks unchanged.
func Filter(leaks []types.Leak, filter string) []types.Leak {
	filter = NormalizeFilter(filter)
	if filter == FilterAll {
		return leaks
	}
	out := make([]types.Leak, 0, len(leaks))
	for _, l := range leaks {
		if Bucket(l) == filter {
			out = append(out, l)
		}
	}
	return out
}

// Class is the visual class of a risk badge.
type Class string

const (
	ClassDanger  Class = "danger"
	ClassWarning Class = "warning"
	ClassSuccess Class = "success"
	ClassPending Class = "pending"
)

// ClassFor maps a score and severity label to a badge class. Either
// predicate can raise the class.
func ClassFor(score int, sev string) Class {
	level := severity.FromString(sev)
	switch {
	case score >= 70 || level == severity.High || level == severity.Critical:
		return ClassDanger
	case score >= 40 || level == severity.Medium:
		return ClassWarning
	default:
		return ClassSuccess
	}
}

// Display is the rendered state of a leak's risk cell.
type Display struct {
	Pending bool
	Score   int
	Label   string // e.g. "HIGH", or "Analysis Pending"
	Class   Class
}

// PendingLabel is shown for leaks without a risk assessment.
const PendingLabel = "Analysis Pending"

// DisplayFor returns the display state of a leak. It is independent of the
// filter bucket: a pending leak filters as "low" but never shows a score.
func DisplayFor(l types.Leak) Display {
	if l.Risk == nil {
		return Display{Pending: true, Label: PendingLabel, Class: ClassPending}
	}
	label := strings.ToUpper(strings.TrimSpace(l.Risk.Severity))
	if label == "" {
		label = severity.Low.Label()
	}
	return Display{
		Score: l.Risk.Score,
		Label: label,
		Class: ClassFor(l.Risk.Score, l.Risk.Severity),
	}
}

// Summarize counts leaks by band; pending leaks are counted separately.
func Summarize(leaks []types.Leak) severity.CountBySeverity {
	var c severity.CountBySeverity
	for _, l := range leaks {
		if l.Risk == nil {
			c.Increment(severity.Unknown)
			continue
		}
		lvl := severity.FromString(l.Risk.Severity)
		if lvl == severity.Unknown {
			lvl = severity.Low
		}
		c.Increment(lvl)
	}
	return c
}
