package severity

import "testing"

func TestFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"Critical", Critical},
		{"HIGH", High},
		{" high ", High},
		{"Medium", Medium},
		{"moderate", Medium},
		{"low", Low},
		{"", Unknown},
		{"info", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FromString(tt.input); got != tt.expected {
				t.Errorf("FromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromScore(t *testing.T) {
	tests := []struct {
		score    int
		expected Level
	}{
		{100, Critical},
		{90, Critical},
		{89, High},
		{70, High},
		{69, Medium},
		{40, Medium},
		{39, Low},
		{0, Low},
	}

	for _, tt := range tests {
		if got := FromScore(tt.score); got != tt.expected {
			t.Errorf("FromScore(%d) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestLevel_PriorityAndLabel(t *testing.T) {
	if !Critical.IsAtLeast(High) || Low.IsAtLeast(Medium) {
		t.Error("IsAtLeast ordering wrong")
	}
	if Unknown.Priority() != 0 {
		t.Errorf("Unknown.Priority() = %d", Unknown.Priority())
	}
	if High.Label() != "HIGH" {
		t.Errorf("Label() = %q", High.Label())
	}
}

func TestCountBySeverity(t *testing.T) {
	var c CountBySeverity
	if c.HighestSeverity() != Unknown {
		t.Error("empty count should report Unknown")
	}
	for _, l := range []Level{Low, Medium, High, Unknown, Low} {
		c.Increment(l)
	}
	if c.Total != 5 || c.Low != 2 || c.Pending != 1 {
		t.Errorf("counts = %+v", c)
	}
	if c.HighestSeverity() != High {
		t.Errorf("HighestSeverity() = %v", c.HighestSeverity())
	}
}
