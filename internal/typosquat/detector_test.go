package typosquat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		domain    string
		typo      bool
		matched   string
		technique string
	}{
		{"paypal.com", false, "", ""},
		{"www.paypal.com", false, "", ""},
		{"PayPal.com", false, "", ""},
		{"paypa1.com", true, "paypal.com", TechniqueSubstitution},
		{"p@yp@l.com", true, "paypal.com", TechniqueSubstitution},
		{"rnicrosoft.com", true, "microsoft.com", TechniqueSubstitution},
		{"g00gle.com", true, "google.com", TechniqueSubstitution},
		{"gooogle.com", true, "google.com", TechniqueEditDistance},
		{"amazom.com", true, "amazon.com", TechniqueEditDistance},
		{"paypal.com.evil.net", true, "paypal.com", TechniqueSubdomainEmbedding},
		{"secure-paypal.com", true, "paypal.com", TechniqueSubdomainEmbedding},
		{"example.org", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			r := d.Detect(tt.domain)
			assert.Equal(t, tt.typo, r.IsTyposquatting)
			assert.Equal(t, tt.matched, r.MatchedDomain)
			assert.Equal(t, tt.technique, r.Technique)
		})
	}
}

func TestDetectExactMatchStopsLoop(t *testing.T) {
	// aa.com is one edit away but is never compared once ab.com matches exactly
	d := NewDetector([]string{"ab.com", "aa.com"})
	r := d.Detect("ab.com")
	assert.False(t, r.IsTyposquatting)
}

func TestDetectCustomList(t *testing.T) {
	d := NewDetector([]string{" Acme.IO "})
	assert.Equal(t, []string{"acme.io"}, d.LegitimateDomains())
	assert.True(t, d.Detect("acrne.io").IsTyposquatting)
	assert.True(t, d.IsLegitimate("ACME.io"))
	assert.False(t, d.IsLegitimate("www.acme.io"))
	assert.False(t, d.Detect("www.acme.io").IsTyposquatting)
	assert.False(t, d.IsLegitimate("acme.io.evil.net"))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"paypal.com", "paypal.com", 0},
		{"paypal.com", "paypall.com", 1},
		{"paypal.com", "payal.com", 1},
		{"paypal.com", "paypai.com", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "%q vs %q", tt.b, tt.a)
	}
}
