package types

import (
	"encoding/json"
	"testing"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusJSDiscoveryDone, false},
		{StatusLeakDetectionDone, false},
		{StatusValidationDone, false},
		{StatusOSINTCorrelationDone, false},
		{StatusFinished, true},
		{StatusFailed, true},
		{StatusStopped, true},
		{Status("Scanning target"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTask_Unmarshal(t *testing.T) {
	data := []byte(`{
		"_id": "abc123",
		"url": "https://example.com",
		"status": "leak_detection_done",
		"created_at": "Sat, 18 Oct 2025 10:00:00 GMT",
		"results": {
			"js_discovery": [{"type": "external", "src": "https://example.com/app.js", "id": "js1"}],
			"endpoints": ["/api/v1/users", {"link": "/api/v1/admin", "source_file": "app.js"}]
		}
	}`)

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if task.ID != "abc123" {
		t.Errorf("ID = %q, want abc123", task.ID)
	}
	if task.Status != StatusLeakDetectionDone {
		t.Errorf("Status = %q, want leak_detection_done", task.Status)
	}
	if task.CreatedAt.IsZero() {
		t.Errorf("CreatedAt should parse HTTP-date, raw = %q", task.CreatedAt.Raw)
	}
	if !task.Results.HasDiscovery() {
		t.Error("HasDiscovery() should be true")
	}
	if !task.Results.HasEndpoints() {
		t.Error("HasEndpoints() should be true")
	}
	if task.Results.HasRisk() {
		t.Error("HasRisk() should be false")
	}
	if len(task.Results.Endpoints) != 2 {
		t.Fatalf("Endpoints = %d, want 2", len(task.Results.Endpoints))
	}
	if task.Results.Endpoints[0].Link != "/api/v1/users" {
		t.Errorf("Endpoints[0].Link = %q", task.Results.Endpoints[0].Link)
	}
	if task.Results.Endpoints[1].Source != "app.js" {
		t.Errorf("Endpoints[1].Source = %q, want app.js", task.Results.Endpoints[1].Source)
	}
}

func TestTask_EmptyDiscoveryIsPresent(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"_id":"x","status":"js_discovery_done","results":{"js_discovery":[]}}`), &task); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !task.Results.HasDiscovery() {
		t.Error("an empty discovery list is still an observed fragment")
	}
}

func TestLeak_EmptyRiskIsPending(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantRisk  bool
		wantOSINT bool
	}{
		{"missing", `{"leak_id":"1","category":"API_KEY"}`, false, false},
		{"null", `{"leak_id":"1","risk":null,"osint":null}`, false, false},
		{"empty objects", `{"leak_id":"1","risk":{},"osint":{}}`, false, false},
		{"populated", `{"leak_id":"1","risk":{"score":85,"severity":"High"},"osint":{"labels":["KNOWN_SENSITIVE_FILE"],"metadata":{"domain":"example.com","cloud_provider":null}}}`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var leak Leak
			if err := json.Unmarshal([]byte(tt.data), &leak); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if (leak.Risk != nil) != tt.wantRisk {
				t.Errorf("Risk present = %v, want %v", leak.Risk != nil, tt.wantRisk)
			}
			if (leak.OSINT != nil) != tt.wantOSINT {
				t.Errorf("OSINT present = %v, want %v", leak.OSINT != nil, tt.wantOSINT)
			}
		})
	}
}

func TestLeak_OSINTMetadataDropsNulls(t *testing.T) {
	var leak Leak
	data := `{"leak_id":"1","osint":{"labels":["A"],"metadata":{"domain":"example.com","domain_type":null}}}`
	if err := json.Unmarshal([]byte(data), &leak); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	md := leak.MetadataOrEmpty()
	if md["domain"] != "example.com" {
		t.Errorf("domain = %q, want example.com", md["domain"])
	}
	if _, ok := md["domain_type"]; ok {
		t.Error("null metadata values should be dropped")
	}
}

func TestLeak_DefaultsWithoutOSINT(t *testing.T) {
	leak := Leak{}
	if labels := leak.LabelsOrEmpty(); len(labels) != 0 {
		t.Errorf("LabelsOrEmpty() = %v, want empty", labels)
	}
	if md := leak.MetadataOrEmpty(); md == nil || len(md) != 0 {
		t.Errorf("MetadataOrEmpty() = %v, want empty non-nil map", md)
	}
}

func TestJSAsset_IsInline(t *testing.T) {
	src := "https://example.com/a.js"
	empty := ""

	if (JSAsset{Src: &src}).IsInline() {
		t.Error("asset with src should not be inline")
	}
	if !(JSAsset{}).IsInline() {
		t.Error("asset without src should be inline")
	}
	if !(JSAsset{Src: &empty}).IsInline() {
		t.Error("asset with empty src should be inline")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		wantZero bool
	}{
		{"Sat, 18 Oct 2025 10:00:00 GMT", false},
		{"2025-10-18T10:00:00Z", false},
		{"2025-10-18T10:00:00.123456", false},
		{"not a date", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts := ParseTimestamp(tt.in)
			if ts.IsZero() != tt.wantZero {
				t.Errorf("IsZero() = %v, want %v", ts.IsZero(), tt.wantZero)
			}
			if ts.Raw != tt.in {
				t.Errorf("Raw = %q, want %q", ts.Raw, tt.in)
			}
		})
	}
}

func TestTimestamp_UnmarshalVariants(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantZero bool
	}{
		{"null", `null`, true},
		{"extended json", `{"$date": "2025-10-18T10:00:00Z"}`, false},
		{"epoch millis", `1760781600000`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.data), &ts); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if ts.IsZero() != tt.wantZero {
				t.Errorf("IsZero() = %v, want %v", ts.IsZero(), tt.wantZero)
			}
		})
	}
}

func TestLeak_MLAnalysisFeatures(t *testing.T) {
	data := []byte(`{"leak_id":"l1","category":"API_KEY","risk":{"score":92,"severity":"High",
		"factors":["Hardcoded AWS key","ML Analysis refined risk score (+12)"],
		"ml_analysis":{"predicted_severity":"High","confidence_score":88,"model_used":"RandomForestClassifier (Ensemble)",
		"top_features":[{"feature":"entropy","importance":0.41},"keyword_match"]}}}`)

	var l Leak
	if err := json.Unmarshal(data, &l); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	ml := l.Risk.MLAnalysis
	if ml == nil || len(ml.TopFeatures) != 2 {
		t.Fatalf("MLAnalysis = %+v", ml)
	}
	if ml.TopFeatures[0].Feature != "entropy" || ml.TopFeatures[0].Importance != 0.41 {
		t.Errorf("TopFeatures[0] = %+v", ml.TopFeatures[0])
	}
	if ml.TopFeatures[1].Feature != "keyword_match" {
		t.Errorf("TopFeatures[1] = %+v", ml.TopFeatures[1])
	}
}
