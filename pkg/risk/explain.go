package risk

import (
	"regexp"
	"strings"

	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/severity"
	"github.com/sentrixio/scanwatch/pkg/types"
)

const (
	maxExplainFactors = 5
	maxMLSummary      = 3
)

// ErrPending is returned when explaining a leak that has no risk record.
var ErrPending = &errors.Error{Kind: errors.KindInvalidInput, Message: "risk analysis pending"}

var (
	numericGroup = regexp.MustCompile(`\s*\([^)]*\d[^)]*\)`)
	numericToken = regexp.MustCompile(`(?:^|\s)[+-]?\d+(?:\.\d+)?%?(?:\s|$)`)
	spaces       = regexp.MustCompile(`\s{2,}`)
)

// qualitative removes numbers from s so no score or weight leaks into the
// explanation prompt.
func qualitative(s string) string {
	s = numericGroup.ReplaceAllString(s, "")
	s = numericToken.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// ExplainRequest builds the explanation payload of a leak. The score is sent
// as its band, factors are capped at five, and the model summary carries at
// most three numberless sentences.
func ExplainRequest(l types.Leak) (types.ExplainRequest, error) {
	if l.Risk == nil {
		return types.ExplainRequest{}, ErrPending
	}

	req := types.ExplainRequest{
		Severity:    displaySeverity(l.Risk.Severity),
		RiskScore:   string(severity.FromScore(l.Risk.Score)),
		RiskFactors: []string{},
		MLSummary:   []string{},
	}

	for _, f := range l.Risk.Factors {
		if len(req.RiskFactors) == maxExplainFactors {
			break
		}
		if q := qualitative(f); q != "" {
			req.RiskFactors = append(req.RiskFactors, q)
		}
	}

	if ml := l.Risk.MLAnalysis; ml != nil {
		if ml.PredictedSeverity != "" {
			req.MLSummary = append(req.MLSummary, "Model suggested severity: "+displaySeverity(ml.PredictedSeverity))
		}
		if ml.ConfidenceScore > 0 {
			req.MLSummary = append(req.MLSummary, "Model confidence: "+confidenceBand(ml.ConfidenceScore))
		}
		var names []string
		for _, f := range ml.TopFeatures {
			if n := qualitative(strings.ReplaceAll(f.Feature, "_", " ")); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			req.MLSummary = append(req.MLSummary, "Influential signals: "+strings.Join(names, ", "))
		}
		if len(req.MLSummary) > maxMLSummary {
			req.MLSummary = req.MLSummary[:maxMLSummary]
		}
	}

	return req, nil
}

func displaySeverity(s string) string {
	lvl := severity.FromString(s)
	if lvl == severity.Unknown {
		return "Unknown"
	}
	name := string(lvl)
	return strings.ToUpper(name[:1]) + name[1:]
}

func confidenceBand(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "moderate"
	default:
		return "low"
	}
}
