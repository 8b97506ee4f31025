// Package severity defines the risk severity bands used for leak filtering,
// badges and summaries.
package severity

import "strings"

// Level is a severity band.
type Level string

const (
	Critical Level = "critical"
	High     Level = "high"
	Medium   Level = "medium"
	Low      Level = "low"
	Unknown  Level = "unknown"
)

// Bands returns the known bands, highest first.
func Bands() []Level {
	return []Level{Critical, High, Medium, Low}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Label returns the upper-case badge text, e.g. "HIGH".
func (l Level) Label() string {
	return strings.ToUpper(string(l))
}

// Priority returns the numeric priority of the level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	switch l {
	case Critical:
		return 4
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// FromString normalizes the backend's severity spellings ("High", "HIGH",
// "high") to a Level.
func FromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "CRIT":
		return Critical
	case "HIGH":
		return High
	case "MEDIUM", "MED", "MODERATE":
		return Medium
	case "LOW":
		return Low
	default:
		return Unknown
	}
}

// FromScore maps a 0-100 risk score to a band.
//   - 90-100: Critical
//   - 70-89: High
//   - 40-69: Medium
//   - 0-39: Low
func FromScore(score int) Level {
	switch {
	case score >= 90:
		return Critical
	case score >= 70:
		return High
	case score >= 40:
		return Medium
	default:
		return Low
	}
}

// CountBySeverity counts leaks by band.
type CountBySeverity struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Pending  int `json:"pending"`
	Total    int `json:"total"`
}

// Increment increases the count for the given severity. Unknown levels are
// counted as pending.
func (c *CountBySeverity) Increment(level Level) {
	c.Total++
	switch level {
	case Critical:
		c.Critical++
	case High:
		c.High++
	case Medium:
		c.Medium++
	case Low:
		c.Low++
	default:
		c.Pending++
	}
}

// HighestSeverity returns the highest band with a non-zero count.
func (c *CountBySeverity) HighestSeverity() Level {
	switch {
	case c.Critical > 0:
		return Critical
	case c.High > 0:
		return High
	case c.Medium > 0:
		return Medium
	case c.Low > 0:
		return Low
	default:
		return Unknown
	}
}
