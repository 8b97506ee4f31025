package main

import (
	"context"
	"strconv"
	"testing"

	"github.com/sentrixio/scanwatch/pkg/dork"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/results"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/types"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

// recordingController records the calls dispatch makes.
type recordingController struct {
	calls []string
}

func (c *recordingController) record(s string) { c.calls = append(c.calls, s) }

func (c *recordingController) StartScan(_ context.Context, target string) (string, error) {
	c.record("scan " + target)
	return "t1", nil
}
func (c *recordingController) GoHome(context.Context) error   { c.record("home"); return nil }
func (c *recordingController) StopScan(context.Context) error { c.record("stop"); return nil }
func (c *recordingController) DeleteTask(_ context.Context, id string) error {
	c.record("delete " + id)
	return nil
}
func (c *recordingController) DeleteAll(context.Context) error { c.record("delete-all"); return nil }
func (c *recordingController) SetFilter(f string) (string, error) {
	c.record("filter " + f)
	return f, nil
}
func (c *recordingController) ChangePage(cat results.Category, delta int) (int, error) {
	if delta > 0 {
		c.record("next " + string(cat))
	} else {
		c.record("prev " + string(cat))
	}
	return 1, nil
}
func (c *recordingController) InspectAsset(_ context.Context, id string) (*types.JSFileContent, error) {
	c.record("inspect " + id)
	return &types.JSFileContent{}, nil
}
func (c *recordingController) Explain(_ context.Context, n int) (*types.Explanation, error) {
	c.record("explain " + strconv.Itoa(n))
	return &types.Explanation{}, nil
}
func (c *recordingController) Queries(n int) ([]dork.Query, error) {
	c.record("queries " + strconv.Itoa(n))
	return nil, nil
}
func (c *recordingController) Lookup(_ context.Context, n int) (*verify.Result, error) {
	c.record("lookup " + strconv.Itoa(n))
	return &verify.Result{}, nil
}
func (c *recordingController) SetTheme(_ context.Context, theme string) (state.Theme, error) {
	c.record("theme " + theme)
	return state.Theme(theme), nil
}
func (c *recordingController) Refresh() { c.record("refresh") }

func TestDispatch(t *testing.T) {
	tests := []struct {
		line     string
		wantCall string
		wantQuit bool
	}{
		{"n", "next leaks", false},
		{"p assets", "prev assets", false},
		{"N endpoints", "next endpoints", false},
		{"n e", "next endpoints", false},
		{"f high", "filter high", false},
		{"f", "filter ", false},
		{"explain 2", "explain 2", false},
		{"queries #3", "queries 3", false},
		{"lookup 1", "lookup 1", false},
		{"inspect js-9", "inspect js-9", false},
		{"scan https://example.com", "scan https://example.com", false},
		{"stop", "stop", false},
		{"delete t9", "delete t9", false},
		{"delete-all", "delete-all", false},
		{"theme light", "theme light", false},
		{"home", "home", false},
		{"r", "refresh", false},
		{"  q  ", "", true},
		{"exit", "", true},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c := &recordingController{}
			quit, err := dispatch(context.Background(), c, tt.line)
			if err != nil {
				t.Fatalf("dispatch(%q) error = %v", tt.line, err)
			}
			if quit != tt.wantQuit {
				t.Errorf("quit = %v, want %v", quit, tt.wantQuit)
			}
			if tt.wantCall == "" {
				if len(c.calls) != 0 {
					t.Errorf("unexpected calls %v", c.calls)
				}
				return
			}
			if len(c.calls) != 1 || c.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", c.calls, tt.wantCall)
			}
		})
	}
}

func TestDispatch_InvalidInput(t *testing.T) {
	for _, line := range []string{
		"frobnicate",
		"n sideways",
		"explain",
		"explain zero",
		"explain 0",
		"inspect",
		"scan",
		"delete",
		"theme",
	} {
		t.Run(line, func(t *testing.T) {
			c := &recordingController{}
			quit, err := dispatch(context.Background(), c, line)
			if quit {
				t.Error("invalid input should not quit")
			}
			if !errors.IsInvalidInput(err) {
				t.Errorf("dispatch(%q) error = %v, want invalid input", line, err)
			}
			if len(c.calls) != 0 {
				t.Errorf("no controller call expected, got %v", c.calls)
			}
		})
	}
}
