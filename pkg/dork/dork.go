// Package dork builds ranked external-lookup suggestions for a leak: domain
// reputation and registration lookups, then search-engine queries for
// related public exposures, most specific first.
package dork

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/sentrixio/scanwatch/pkg/types"
)

// Kind identifies what a query looks for.
type Kind string

const (
	KindReputation   Kind = "reputation"
	KindWhois        Kind = "whois"
	KindFileExposure Kind = "file_exposure"
	KindPlatform     Kind = "platform"
	KindCredential   Kind = "credential"
	KindSite         Kind = "site"
)

// Query is one lookup suggestion. URL is set for deep links; search queries
// leave it empty and are opened through SearchURL.
type Query struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Query string `json:"query"`
	Icon  string `json:"icon"`
	URL   string `json:"url,omitempty"`

	// Platform is the hosting domain of a KindPlatform query.
	Platform string `json:"platform,omitempty"`
}

// SearchURL returns the explicit URL, or a Google search for the query.
func (q Query) SearchURL() string {
	if q.URL != "" {
		return q.URL
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(q.Query)
}

// ConfigExtensions are the source-file extensions that trigger
// file-exposure queries. Matching is case-sensitive.
var ConfigExtensions = map[string]bool{
	"env":    true,
	"json":   true,
	"yaml":   true,
	"yml":    true,
	"conf":   true,
	"config": true,
	"ini":    true,
	"xml":    true,
}

// Platforms are the code and paste hosts recognised in leak URLs, most
// specific first.
var Platforms = []string{
	"gist.github.com",
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"pastebin.com",
}

type credentialRule struct {
	match func(excerpt string) bool
	label string
	query string // %[1]s is the domain
}

var credentialRules = []credentialRule{
	{
		match: func(e string) bool { return strings.Contains(e, "AKIA") || strings.Contains(e, "ASIA") },
		label: "AWS Key Exposure",
		query: `"%[1]s" "AKIA" OR "ASIA" OR "aws_secret_access_key"`,
	},
	{
		match: func(e string) bool { return strings.Contains(e, "AIza") },
		label: "Google API Key Exposure",
		query: `"%[1]s" "AIza"`,
	},
	{
		match: func(e string) bool {
			return strings.Contains(e, "-----BEGIN") && strings.Contains(e, "PRIVATE KEY-----")
		},
		label: "Private Key Exposure",
		query: `site:%[1]s "BEGIN PRIVATE KEY" OR "BEGIN RSA PRIVATE KEY"`,
	},
}

// Domain returns the site a leak belongs to: metadata["domain"], else the
// hostname of the leak URL, else "".
func Domain(leak types.Leak, metadata map[string]string) string {
	if d := strings.TrimSpace(metadata["domain"]); d != "" {
		return d
	}
	return hostname(leak.URL)
}

func hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	if !strings.Contains(raw, "://") {
		if u, err := url.Parse("http://" + raw); err == nil {
			return u.Hostname()
		}
	}
	return ""
}

// extension returns the extension of a source path or URL without the dot,
// ignoring any query string or fragment.
func extension(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.TrimPrefix(path.Ext(source), ".")
}

// Generate returns the lookup suggestions for a leak, or an empty list when
// no domain can be derived. The order is fixed: reputation, whois,
// file-exposure, platform, credential, then the site catch-all.
func Generate(leak types.Leak, metadata map[string]string) []Query {
	domain := Domain(leak, metadata)
	if domain == "" {
		return []Query{}
	}

	queries := []Query{
		{
			Kind:  KindReputation,
			Label: "Domain Reputation",
			Query: domain,
			Icon:  "shield",
			URL:   "https://www.virustotal.com/gui/domain/" + url.PathEscape(domain),
		},
		{
			Kind:  KindWhois,
			Label: "WHOIS Lookup",
			Query: domain,
			Icon:  "id-card",
			URL:   "https://who.is/whois/" + url.PathEscape(domain),
		},
	}

	if ext := extension(leak.SourceFile); ConfigExtensions[ext] {
		queries = append(queries,
			Query{
				Kind:  KindFileExposure,
				Label: fmt.Sprintf("Exposed .%s Files", ext),
				Query: fmt.Sprintf("site:%s ext:%s", domain, ext),
				Icon:  "file",
			},
			Query{
				Kind:  KindFileExposure,
				Label: fmt.Sprintf("Secrets in .%s Files", ext),
				Query: fmt.Sprintf(`site:%s filetype:%s "password" OR "secret"`, domain, ext),
				Icon:  "file-lock",
			},
		)
	}

	for _, platform := range Platforms {
		if strings.Contains(leak.URL, platform) {
			queries = append(queries, Query{
				Kind:     KindPlatform,
				Label:    "Search " + platform,
				Query:    fmt.Sprintf(`site:%s "%s"`, platform, domain),
				Icon:     "code",
				Platform: platform,
			})
			break
		}
	}

	for _, rule := range credentialRules {
		if rule.match(leak.Excerpt) {
			queries = append(queries, Query{
				Kind:  KindCredential,
				Label: rule.label,
				Query: fmt.Sprintf(rule.query, domain),
				Icon:  "key",
			})
		}
	}

	return append(queries, Query{
		Kind:  KindSite,
		Label: "Site Search",
		Query: "site:" + domain,
		Icon:  "search",
	})
}
