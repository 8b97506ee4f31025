package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/types"
)

// DefaultTaskLimit is the number of recent tasks the home view lists.
const DefaultTaskLimit = 10

// Health probes the backend.
func (c *Client) Health(ctx context.Context) (*types.Health, error) {
	var h types.Health
	if err := c.doRequest(ctx, "client.Health", http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stats returns aggregate counts and distributions.
func (c *Client) Stats(ctx context.Context) (*types.Stats, error) {
	var s types.Stats
	if err := c.doRequest(ctx, "client.Stats", http.MethodGet, "/api/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CategoryHeatmap returns the category x severity-band matrix.
func (c *Client) CategoryHeatmap(ctx context.Context) (*types.Heatmap, error) {
	var h types.Heatmap
	if err := c.doRequest(ctx, "client.CategoryHeatmap", http.MethodGet, "/api/stats/category_heatmap", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListTasks returns the most recent limit task summaries, newest first.
func (c *Client) ListTasks(ctx context.Context, limit int) ([]types.TaskSummary, error) {
	if limit <= 0 {
		limit = DefaultTaskLimit
	}
	var resp struct {
		Tasks []types.TaskSummary `json:"tasks"`
	}
	path := "/api/tasks?limit=" + strconv.Itoa(limit)
	if err := c.doRequest(ctx, "client.ListTasks", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// StartScan submits a scan for target. An empty (after trimming) target is
// rejected without a request.
func (c *Client) StartScan(ctx context.Context, target string) (*types.ScanStarted, error) {
	const op = "client.StartScan"
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.Wrap(errors.ErrEmptyURL, op)
	}

	var resp types.ScanStarted
	body := map[string]string{"url": target}
	if err := c.doRequest(ctx, op, http.MethodPost, "/api/start_scan", body, &resp); err != nil {
		return nil, err
	}
	if resp.TaskID == "" {
		return nil, errors.E(errors.KindPayload, op, "response has no task_id")
	}
	return &resp, nil
}

// TaskStatus returns the current task snapshot.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*types.Task, error) {
	var t types.Task
	if err := c.doRequest(ctx, "client.TaskStatus", http.MethodGet, "/api/task_status/"+url.PathEscape(taskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// JSFiles returns the complete discovered script set, with 1-based
// positions assigned in response order.
func (c *Client) JSFiles(ctx context.Context, taskID string) ([]types.JSAsset, error) {
	var resp struct {
		TaskID  string          `json:"task_id"`
		JSFiles []types.JSAsset `json:"js_files"`
	}
	if err := c.doRequest(ctx, "client.JSFiles", http.MethodGet, "/api/js_files/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}
	assets := resp.JSFiles
	if assets == nil {
		assets = []types.JSAsset{}
	}
	for i := range assets {
		assets[i].Position = i + 1
	}
	return assets, nil
}

// JSFile returns one script's content for inspection.
func (c *Client) JSFile(ctx context.Context, jsID string) (*types.JSFileContent, error) {
	var f types.JSFileContent
	if err := c.doRequest(ctx, "client.JSFile", http.MethodGet, "/api/js_file/"+url.PathEscape(jsID), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Leaks returns the complete current leak set of a task.
func (c *Client) Leaks(ctx context.Context, taskID string) ([]types.Leak, error) {
	var resp struct {
		TaskID string       `json:"task_id"`
		Count  int          `json:"count"`
		Leaks  []types.Leak `json:"leaks"`
	}
	if err := c.doRequest(ctx, "client.Leaks", http.MethodGet, "/api/leaks/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Leaks == nil {
		return []types.Leak{}, nil
	}
	return resp.Leaks, nil
}

// TaskLogs returns the task's log entries in arrival order.
func (c *Client) TaskLogs(ctx context.Context, taskID string) ([]types.LogEntry, error) {
	var resp struct {
		TaskID string           `json:"task_id"`
		Logs   []types.LogEntry `json:"logs"`
	}
	if err := c.doRequest(ctx, "client.TaskLogs", http.MethodGet, "/api/task_logs/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Logs == nil {
		return []types.LogEntry{}, nil
	}
	return resp.Logs, nil
}

// StopScan asks the backend to revoke a running scan. The task reports
// status "stopped" on a later poll.
func (c *Client) StopScan(ctx context.Context, taskID string) (*types.ActionResult, error) {
	var r types.ActionResult
	if err := c.doRequest(ctx, "client.StopScan", http.MethodPost, "/api/stop_scan/"+url.PathEscape(taskID), nil, &r); err != nil {
		return nil, err
	}
	r.Success = true
	if r.TaskID == "" {
		r.TaskID = taskID
	}
	return &r, nil
}

// DeleteTask deletes a task and its related data.
func (c *Client) DeleteTask(ctx context.Context, taskID string) (*types.ActionResult, error) {
	const op = "client.DeleteTask"
	var r types.ActionResult
	if err := c.doRequest(ctx, op, http.MethodPost, "/api/delete_task/"+url.PathEscape(taskID), nil, &r); err != nil {
		return nil, err
	}
	if !r.Success {
		return nil, errors.E(errors.KindServer, op, "backend did not confirm deletion")
	}
	return &r, nil
}

// DeleteAllTasks deletes every task.
func (c *Client) DeleteAllTasks(ctx context.Context) (*types.ActionResult, error) {
	const op = "client.DeleteAllTasks"
	var r types.ActionResult
	if err := c.doRequest(ctx, op, http.MethodPost, "/api/delete_all_tasks", nil, &r); err != nil {
		return nil, err
	}
	if !r.Success {
		return nil, errors.E(errors.KindServer, op, "backend did not confirm deletion")
	}
	return &r, nil
}

// Explain requests a natural-language explanation of a leak's risk.
func (c *Client) Explain(ctx context.Context, req types.ExplainRequest) (*types.Explanation, error) {
	var e types.Explanation
	if err := c.doRequest(ctx, "client.Explain", http.MethodPost, "/api/ai/explain", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
