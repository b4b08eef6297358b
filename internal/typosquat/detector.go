// Package typosquat detects lookalike variants of well-known legitimate domains.
package typosquat

import (
	"strings"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// Detection techniques
const (
	TechniqueSubstitution       = "substitution"
	TechniqueEditDistance       = "edit_distance"
	TechniqueSubdomainEmbedding = "subdomain_embedding"
)

// DefaultLegitimateDomains are brands commonly impersonated in phishing mail
var DefaultLegitimateDomains = []string{
	"paypal.com",
	"google.com",
	"microsoft.com",
	"apple.com",
	"amazon.com",
	"facebook.com",
	"netflix.com",
	"bankofamerica.com",
	"chase.com",
	"wellsfargo.com",
	"citibank.com",
	"linkedin.com",
	"github.com",
	"dropbox.com",
	"docusign.com",
	"ebay.com",
	"adobe.com",
	"instagram.com",
	"twitter.com",
	"americanexpress.com",
}

type confusable struct {
	from string
	to   []string
}

// confusables is ordered so that results are deterministic
var confusables = []confusable{
	{"a", []string{"@", "4"}},
	{"o", []string{"0"}},
	{"l", []string{"1", "i"}},
	{"i", []string{"1", "l"}},
	{"e", []string{"3"}},
	{"s", []string{"5", "$"}},
	{"m", []string{"rn"}},
	{"g", []string{"9"}},
	{"b", []string{"8"}},
}

// Detector compares domains against a fixed list of legitimate domains
type Detector struct {
	legitimate []string
}

// NewDetector creates a detector for the given legitimate domains. An empty
// list selects DefaultLegitimateDomains.
func NewDetector(legitimate []string) *Detector {
	if len(legitimate) == 0 {
		legitimate = DefaultLegitimateDomains
	}
	list := make([]string, 0, len(legitimate))
	for _, d := range legitimate {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			list = append(list, d)
		}
	}
	return &Detector{legitimate: list}
}

// LegitimateDomains returns the domains this detector protects
func (d *Detector) LegitimateDomains() []string {
	return d.legitimate
}

// IsLegitimate reports whether domain is exactly one of the legitimate
// domains. Subdomains, www included, do not match.
func (d *Detector) IsLegitimate(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, legit := range d.legitimate {
		if domain == legit {
			return true
		}
	}
	return false
}

// Detect reports whether domain impersonates one of the legitimate domains.
// The first legitimate domain that matches decides the result.
func (d *Detector) Detect(domain string) *core.TyposquatResult {
	candidate := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	result := &core.TyposquatResult{Domain: candidate}

	for _, legit := range d.legitimate {
		if candidate == legit {
			return result
		}
		if matchesSubstitution(candidate, legit) {
			return flagged(result, legit, TechniqueSubstitution)
		}
		if Levenshtein(candidate, legit) == 1 {
			return flagged(result, legit, TechniqueEditDistance)
		}
		if strings.Contains(candidate, legit) {
			return flagged(result, legit, TechniqueSubdomainEmbedding)
		}
	}
	return result
}

func flagged(r *core.TyposquatResult, legit, technique string) *core.TyposquatResult {
	r.IsTyposquatting = true
	r.MatchedDomain = legit
	r.Technique = technique
	return r
}

// matchesSubstitution replaces every occurrence of one character of legit
// with a confusable and compares the result to candidate
func matchesSubstitution(candidate, legit string) bool {
	for _, c := range confusables {
		if !strings.Contains(legit, c.from) {
			continue
		}
		for _, to := range c.to {
			if strings.ReplaceAll(legit, c.from, to) == candidate {
				return true
			}
		}
	}
	return false
}

// Levenshtein returns the edit distance between a and b with unit costs
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
