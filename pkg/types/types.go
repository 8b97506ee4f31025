// Package types defines the wire and view types shared by the scan monitor:
// task snapshots, discovered assets, endpoints, leaks and their enrichment,
// pipeline logs, and the home-view aggregates.
package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// Status
// =============================================================================

// Status is a pipeline stage name reported by the backend.
type Status string

const (
	StatusQueued               Status = "queued"
	StatusRunning              Status = "running"
	StatusJSDiscoveryDone      Status = "js_discovery_done"
	StatusLeakDetectionDone    Status = "leak_detection_done"
	StatusValidationDone       Status = "validation_done"
	StatusOSINTCorrelationDone Status = "osint_correlation_done"
	StatusFinished             Status = "finished"
	StatusFailed               Status = "failed"
	StatusStopped              Status = "stopped"
)

// IsTerminal reports whether no further stage transitions are expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// String returns the raw status.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// Timestamp
// =============================================================================

// Timestamp decodes the several time encodings the backend emits (HTTP-date
// from the JSON encoder, RFC 3339, naive ISO 8601). Unparseable values keep
// the raw text and a zero time instead of failing the whole payload.
type Timestamp struct {
	time.Time
	Raw string
}

var timestampLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	// Extended JSON dates: {"$date": ...}
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Date json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		return t.UnmarshalJSON(wrapped.Date)
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Numeric epoch milliseconds
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return err
		}
		*t = Timestamp{Time: time.UnixMilli(ms).UTC()}
		return nil
	}

	*t = ParseTimestamp(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		if t.Raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseTimestamp parses s using the known layouts.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: parsed, Raw: s}
		}
	}
	return Timestamp{Raw: s}
}

// =============================================================================
// Task
// =============================================================================

// Task is a read-only snapshot of a scan as returned by the status endpoint.
type Task struct {
	ID        string      `json:"_id"`
	URL       string      `json:"url"`
	Status    Status      `json:"status"`
	CreatedBy string      `json:"created_by,omitempty"`
	CreatedAt Timestamp   `json:"created_at"`
	UpdatedAt Timestamp   `json:"updated_at"`
	Progress  string      `json:"progress,omitempty"` // free-form, e.g. "15 files"
	Results   TaskResults `json:"results"`
}

// TaskResults holds the nested per-stage fragments of a task snapshot.
// A nil field means the stage has not written its fragment yet.
type TaskResults struct {
	JSDiscovery      []DiscoveredScript `json:"js_discovery,omitempty"`
	Endpoints        []Endpoint         `json:"endpoints,omitempty"`
	RiskML           *RiskSummary       `json:"risk_ml,omitempty"`
	OSINTCorrelation map[string]int     `json:"osint_correlation,omitempty"`
	Validation       json.RawMessage    `json:"validation,omitempty"`
}

// HasDiscovery reports whether the discovery fragment is present.
func (r *TaskResults) HasDiscovery() bool { return r.JSDiscovery != nil }

// HasEndpoints reports whether the endpoints fragment is present.
func (r *TaskResults) HasEndpoints() bool { return r.Endpoints != nil }

// HasRisk reports whether risk scoring has written its summary.
func (r *TaskResults) HasRisk() bool { return r.RiskML != nil }

// DiscoveredScript is one entry of the discovery fragment.
type DiscoveredScript struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Src  string `json:"src"`
}

// RiskSummary is the task-level risk fragment.
type RiskSummary struct {
	Score           int    `json:"score"`
	AvgScore        int    `json:"avg_score,omitempty"`
	Severity        string `json:"severity"`
	TotalLeaks      int    `json:"total_leaks"`
	HighRiskCount   int    `json:"high_risk_count,omitempty"`
	MediumRiskCount int    `json:"medium_risk_count,omitempty"`
	LowRiskCount    int    `json:"low_risk_count,omitempty"`
}

// TaskSummary is an entry of the recent-tasks list.
type TaskSummary struct {
	ID        string    `json:"_id"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	CreatedAt Timestamp `json:"created_at"`
}

// ActiveScan is the durable marker naming the task a profile is monitoring.
type ActiveScan struct {
	TaskID string `json:"task_id"`
	URL    string `json:"url"`
}

// =============================================================================
// Assets, endpoints
// =============================================================================

// JSAsset is a discovered script. A nil Src means an inline script.
type JSAsset struct {
	ID           string    `json:"_id"`
	Src          *string   `json:"src"`
	Origin       string    `json:"origin,omitempty"`
	DiscoveredAt Timestamp `json:"discovered_at"`

	// Position is the 1-based ordinal assigned when the list is accumulated.
	Position int `json:"-"`
}

// IsInline reports whether the asset has no source URL.
func (a JSAsset) IsInline() bool {
	return a.Src == nil || *a.Src == ""
}

// JSFileContent is a single asset with its body, for inspection.
type JSFileContent struct {
	ID      string `json:"_id"`
	TaskID  string `json:"task_id"`
	URL     string `json:"url"`
	Src     string `json:"src"`
	Origin  string `json:"origin"`
	Content string `json:"content"`
}

// Endpoint is a link extracted from script content.
type Endpoint struct {
	Link     string `json:"link"`
	Context  string `json:"context,omitempty"`
	JSFileID string `json:"js_file_id,omitempty"`
	Source   string `json:"source_file,omitempty"`
}

// UnmarshalJSON accepts either a bare link string or an object.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var link string
	if err := json.Unmarshal(data, &link); err == nil {
		*e = Endpoint{Link: link}
		return nil
	}
	type plain Endpoint
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Endpoint(p)
	return nil
}

// =============================================================================
// Leaks
// =============================================================================

// Leak is a detected secret or sensitive string.
type Leak struct {
	ID         string `json:"leak_id"`
	JSFileID   string `json:"jsfile_id,omitempty"`
	Pattern    string `json:"pattern"`
	Category   string `json:"category"`
	Excerpt    string `json:"excerpt,omitempty"`
	Severity   string `json:"severity,omitempty"` // rule severity, not the risk band
	RuleID     string `json:"rule_id,omitempty"`
	RuleSource string `json:"rule_source,omitempty"`
	URL        string `json:"url,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	Risk       *Risk  `json:"risk,omitempty"`
	OSINT      *OSINT `json:"osint,omitempty"`
}

// UnmarshalJSON treats an empty risk or osint object as absent, so a leak the
// risk stage has not reached stays in the pending state.
func (l *Leak) UnmarshalJSON(data []byte) error {
	type plain Leak
	var aux struct {
		plain
		Risk  json.RawMessage `json:"risk"`
		OSINT json.RawMessage `json:"osint"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = Leak(aux.plain)
	l.Risk = nil
	l.OSINT = nil

	if !isEmptyObject(aux.Risk) {
		var r Risk
		if err := json.Unmarshal(aux.Risk, &r); err != nil {
			return err
		}
		l.Risk = &r
	}
	if !isEmptyObject(aux.OSINT) {
		var o OSINT
		if err := json.Unmarshal(aux.OSINT, &o); err != nil {
			return err
		}
		l.OSINT = &o
	}
	return nil
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return false
	}
	return len(m) == 0
}

// Risk is the per-leak risk assessment.
type Risk struct {
	Score      int         `json:"score"`
	Severity   string      `json:"severity"`
	Factors    []string    `json:"factors,omitempty"`
	MLAnalysis *MLAnalysis `json:"ml_analysis,omitempty"`
}

// MLAnalysis is the advisory model output attached to a risk record.
type MLAnalysis struct {
	PredictedSeverity string      `json:"predicted_severity"`
	ConfidenceScore   int         `json:"confidence_score"`
	ModelUsed         string      `json:"model_used"`
	TopFeatures       []MLFeature `json:"top_features,omitempty"`
}

// MLFeature is one of the model's most influential features.
type MLFeature struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// UnmarshalJSON accepts {"feature", "importance"} objects and bare names.
func (f *MLFeature) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*f = MLFeature{Feature: name}
		return nil
	}
	type alias MLFeature
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = MLFeature(a)
	return nil
}

// OSINT is the open-source-intelligence enrichment of a leak.
type OSINT struct {
	Labels   []string          `json:"labels"`
	Metadata map[string]string `json:"metadata"`
}

// UnmarshalJSON keeps only string-valued metadata; nulls are dropped.
func (o *OSINT) UnmarshalJSON(data []byte) error {
	var aux struct {
		Labels   []string                   `json:"labels"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.Labels = aux.Labels
	o.Metadata = make(map[string]string, len(aux.Metadata))
	for k, raw := range aux.Metadata {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			o.Metadata[k] = s
		}
	}
	return nil
}

// LabelsOrEmpty returns the OSINT labels, or nil when absent.
func (l *Leak) LabelsOrEmpty() []string {
	if l.OSINT == nil {
		return nil
	}
	return l.OSINT.Labels
}

// MetadataOrEmpty returns the OSINT metadata, never nil.
func (l *Leak) MetadataOrEmpty() map[string]string {
	if l.OSINT == nil || l.OSINT.Metadata == nil {
		return map[string]string{}
	}
	return l.OSINT.Metadata
}

// =============================================================================
// Logs
// =============================================================================

// LogEntry is one pipeline log line.
type LogEntry struct {
	ID        string    `json:"log_id"`
	Timestamp Timestamp `json:"timestamp"`
	Stage     string    `json:"stage"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// =============================================================================
// Home view aggregates
// =============================================================================

// Stats is the aggregate returned by the stats endpoint.
type Stats struct {
	TotalScans         int            `json:"total_scans"`
	StatusDistribution map[string]int `json:"status_distribution"`
	RiskDistribution   map[string]int `json:"risk_distribution"`
	TopLeakCategories  map[string]int `json:"top_leak_categories"`
}

// Heatmap is the category x severity-band matrix.
type Heatmap struct {
	Categories []string                  `json:"categories"`
	Severities []string                  `json:"severities"`
	Matrix     map[string]map[string]int `json:"matrix"`
}

// ScanStarted is the start_scan response.
type ScanStarted struct {
	TaskID       string `json:"task_id"`
	CeleryTaskID string `json:"celery_task_id,omitempty"`
}

// ActionResult is the response of stop/delete operations.
type ActionResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
	Revoked string `json:"revoked,omitempty"`
}

// ExplainRequest is the explanation payload. It carries qualitative labels
// only; raw scores and feature weights are never sent.
type ExplainRequest struct {
	Severity    string   `json:"severity"`
	RiskScore   string   `json:"risk_score"`
	RiskFactors []string `json:"risk_factors"`
	MLSummary   []string `json:"ml_summary"`
}

// Explanation is the explain response.
type Explanation struct {
	Role        string `json:"role"`
	Authority   string `json:"authority"`
	Explanation string `json:"explanation"`
}

// Health is the backend health probe response.
type Health struct {
	Service string `json:"service"`
	Mongo   bool   `json:"mongo"`
}
