package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mail-threat-filter/internal/core"
)

func TestDomainsTable(t *testing.T) {
	out := DomainsTable(map[string]*core.DomainValidationResult{
		"zeta.example":  {Domain: "zeta.example", IsSafe: true, Provider: "quad9", ResponseTimeMs: 12},
		"alpha.example": {Domain: "alpha.example", IsBlocked: true, Provider: "custom-blocklist"},
		"slow.example":  {Domain: "slow.example", IsSafe: true, FailedOpen: true, Provider: "quad9", Error: "timeout"},
	})

	assert.Contains(t, out, "Domain Validation")
	assert.Contains(t, out, "blocked")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "timeout")
	assert.Less(t, strings.Index(out, "alpha.example"), strings.Index(out, "zeta.example"))
}

func TestAssessmentsTable(t *testing.T) {
	a := &core.Assessment{
		MessageID:         "INBOX:7",
		RecommendedAction: core.ActionQuarantine,
		DomainSafety:      &core.MessageScanResult{BlockedDomains: []string{"evil.example"}},
		Confidence: &core.ScoreBreakdown{
			TotalScore:     -90,
			ConfidenceBand: core.BandVeryLow,
			Rules:          []core.ScoreRule{{RuleID: "SPF_FAIL", Points: -30, Reason: "SPF failed"}},
		},
		Reasons:     []string{"blocked domains: evil.example"},
		ActionError: "no mailbox configured",
	}

	t.Run("summary", func(t *testing.T) {
		out := AssessmentsTable([]*core.Assessment{a}, false)
		assert.Contains(t, out, "INBOX:7")
		assert.Contains(t, out, "quarantine")
		assert.Contains(t, out, "-90")
		assert.NotContains(t, out, "SPF_FAIL")
	})

	t.Run("detailed", func(t *testing.T) {
		out := AssessmentsTable([]*core.Assessment{a}, true)
		assert.Contains(t, out, "SPF_FAIL")
		assert.Contains(t, out, "-30")
		assert.Contains(t, out, "Action failed")
	})
}

func TestFolderConfidenceTable(t *testing.T) {
	out := FolderConfidenceTable(&core.FolderConfidence{
		Folder: "INBOX",
		Total:  4,
		ByBand: map[core.ConfidenceBand]int{core.BandHigh: 3, core.BandLow: 1},
	}, false)
	assert.Contains(t, out, "INBOX")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
}

func TestBulkSummary(t *testing.T) {
	out := BulkSummary(&core.BulkAssessment{Scanned: 3, Safe: 2, Blocked: 1, ActionedIDs: []string{"x"}})
	assert.Contains(t, out, "Scanned 3 messages")
	assert.Contains(t, out, "1 marked as spam")
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(&core.ScoreBreakdown{TotalScore: 55, ConfidenceBand: core.BandHigh})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "HIGH", decoded["confidence_band"])
	assert.EqualValues(t, 55, decoded["total_score"])
}

func TestRenderTableRowTruncates(t *testing.T) {
	row := renderTableRow([]string{"averyveryverylongdomainname.example"}, []int{10}, false)
	assert.Contains(t, row, "averyve...")
}
