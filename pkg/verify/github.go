// Package verify runs the GitHub side of a platform lookup: a code search for
// the leak's domain, so the operator can see whether the same site shows up
// in public repositories without leaving the terminal.
package verify

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/sentrixio/scanwatch/pkg/core"
	"github.com/sentrixio/scanwatch/pkg/errors"
)

// DefaultMaxResults caps the matches returned by one lookup.
const DefaultMaxResults = 10

// Config configures the GitHub verifier.
type Config struct {
	// Token is a GitHub token. Code search rejects anonymous requests.
	Token string `yaml:"token" json:"token"`

	// BaseURL overrides the API endpoint (GitHub Enterprise or tests).
	BaseURL string `yaml:"base_url" json:"base_url"`

	MaxResults int `yaml:"max_results" json:"max_results"`
}

// Match is one code search hit.
type Match struct {
	Repository string
	Path       string
	URL        string
}

// Result is the outcome of one lookup.
type Result struct {
	Query      string
	Total      int
	Incomplete bool
	Matches    []Match
}

// Verifier searches GitHub code for leak domains.
type Verifier struct {
	client     *github.Client
	maxResults int
	logger     core.Logger
}

// New creates a verifier. An empty token is allowed but every search will
// fail with an authentication error.
func New(ctx context.Context, cfg Config, logger core.Logger) (*Verifier, error) {
	var hc *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(hc)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.E(errors.KindInvalidInput, "verify.New", "invalid base URL", err)
		}
		client.BaseURL = u
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	return &Verifier{client: client, maxResults: maxResults, logger: core.OrNop(logger)}, nil
}

// SearchDomain searches public code for the quoted domain.
func (v *Verifier) SearchDomain(ctx context.Context, domain string) (*Result, error) {
	const op = "verify.SearchDomain"
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, errors.E(errors.KindInvalidInput, op, "domain is required")
	}

	query := fmt.Sprintf("%q", domain)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: v.maxResults}}

	v.logger.Debug("github code search: %s", query)
	res, _, err := v.client.Search.Code(ctx, query, opts)
	if err != nil {
		var rateErr *github.RateLimitError
		if stderrors.As(err, &rateErr) {
			return nil, errors.E(errors.KindServer, op, "GitHub rate limit exceeded", err)
		}
		var respErr *github.ErrorResponse
		if stderrors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusUnauthorized {
			return nil, errors.E(errors.KindInvalidInput, op, "GitHub token required for code search", err)
		}
		return nil, errors.E(errors.KindNetwork, op, "code search failed", err)
	}

	out := &Result{
		Query:      query,
		Total:      res.GetTotal(),
		Incomplete: res.GetIncompleteResults(),
	}
	for _, cr := range res.CodeResults {
		if len(out.Matches) == v.maxResults {
			break
		}
		out.Matches = append(out.Matches, Match{
			Repository: cr.GetRepository().GetFullName(),
			Path:       cr.GetPath(),
			URL:        cr.GetHTMLURL(),
		})
	}
	return out, nil
}
