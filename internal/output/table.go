// Package output provides formatted terminal output for assessment results.
package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// Styles for terminal output.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("240")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14")).
			MarginTop(1).
			MarginBottom(1)
)

var (
	domainWidths     = []int{35, 9, 18, 8, 7}
	assessmentWidths = []int{30, 12, 7, 10, 40}
	scoreWidths      = []int{30, 7, 10, 40}
)

// DomainsTable renders domain validation results sorted by domain
func DomainsTable(results map[string]*core.DomainValidationResult) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Domain Validation"))
	sb.WriteString("\n\n")
	sb.WriteString(renderTableRow([]string{"Domain", "Status", "Provider", "Time", "Cached"}, domainWidths, true))
	sb.WriteString("\n")

	domains := make([]string, 0, len(results))
	for d := range results {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		r := results[d]
		cached := mutedStyle.Render("no")
		if r.FromCache {
			cached = "yes"
		}
		row := []string{
			r.Domain,
			formatSafety(r),
			r.Provider,
			fmt.Sprintf("%dms", r.ResponseTimeMs),
			cached,
		}
		sb.WriteString(renderTableRow(row, domainWidths, false))
		sb.WriteString("\n")
		if r.Error != "" {
			sb.WriteString(mutedStyle.Render("    " + r.Error))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// AssessmentsTable renders assessments and, when detailed, the fired rules of each
func AssessmentsTable(assessments []*core.Assessment, detailed bool) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Threat Assessment"))
	sb.WriteString("\n\n")
	sb.WriteString(renderTableRow([]string{"Message", "Action", "Score", "Band", "Blocked Domains"}, assessmentWidths, true))
	sb.WriteString("\n")

	for _, a := range assessments {
		score, band := "", ""
		if a.Confidence != nil {
			score = fmt.Sprintf("%d", a.Confidence.TotalScore)
			band = formatBand(a.Confidence.ConfidenceBand)
		}
		blocked := ""
		if a.DomainSafety != nil {
			blocked = strings.Join(a.DomainSafety.BlockedDomains, ", ")
		}
		row := []string{
			messageLabel(a.MessageID),
			formatAction(a.RecommendedAction),
			score,
			band,
			failStyle.Render(blocked),
		}
		sb.WriteString(renderTableRow(row, assessmentWidths, false))
		sb.WriteString("\n")

		if detailed {
			sb.WriteString(renderAssessmentDetails(a))
		}
	}

	return sb.String()
}

// BulkSummary renders the counts of a bulk assessment
func BulkSummary(b *core.BulkAssessment) string {
	summary := fmt.Sprintf("Scanned %d messages: %s allowed, %s quarantined",
		b.Scanned,
		passStyle.Render(fmt.Sprintf("%d", b.Safe)),
		formatCount(b.Blocked))
	if len(b.ActionedIDs) > 0 {
		summary += fmt.Sprintf(", %d marked as spam", len(b.ActionedIDs))
	}
	return summary + "\n"
}

func renderAssessmentDetails(a *core.Assessment) string {
	var sb strings.Builder

	for _, reason := range a.Reasons {
		sb.WriteString(mutedStyle.Render("    Reason: "))
		sb.WriteString(reason)
		sb.WriteString("\n")
	}
	if a.Confidence != nil {
		sb.WriteString(renderRules(a.Confidence))
	}
	if rep := a.Reputation; rep != nil {
		sb.WriteString(mutedStyle.Render("    Reputation: "))
		sb.WriteString(fmt.Sprintf("%s score=%.2f spam=%t", rep.Source, rep.Score, rep.IsSpam))
		if rep.Explanation != "" {
			sb.WriteString(" " + mutedStyle.Render(rep.Explanation))
		}
		sb.WriteString("\n")
	}
	if a.AutoActioned {
		sb.WriteString(warnStyle.Render("    Marked as spam"))
		sb.WriteString("\n")
	}
	if a.ActionError != "" {
		sb.WriteString(failStyle.Render("    Action failed: " + a.ActionError))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	return sb.String()
}

// ScoresTable renders header confidence scores
func ScoresTable(scores []*core.ScoreBreakdown, detailed bool) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Header Confidence"))
	sb.WriteString("\n\n")
	sb.WriteString(renderTableRow([]string{"Message", "Score", "Band", "Recommendation"}, scoreWidths, true))
	sb.WriteString("\n")

	for _, s := range scores {
		row := []string{
			messageLabel(s.MessageID),
			fmt.Sprintf("%d", s.TotalScore),
			formatBand(s.ConfidenceBand),
			s.Recommendation,
		}
		sb.WriteString(renderTableRow(row, scoreWidths, false))
		sb.WriteString("\n")

		if detailed {
			sb.WriteString(renderRules(s))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// FolderConfidenceTable renders the band distribution of a folder
func FolderConfidenceTable(fc *core.FolderConfidence, detailed bool) string {
	var sb strings.Builder

	sb.WriteString(sectionStyle.Render(fmt.Sprintf("Folder %s: %d messages", fc.Folder, fc.Total)))
	sb.WriteString("\n")
	for _, band := range []core.ConfidenceBand{core.BandHigh, core.BandMedium, core.BandLow, core.BandVeryLow} {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", formatBand(band), formatPercent(fc.ByBand[band], fc.Total)))
	}

	if detailed {
		sb.WriteString("\n")
		sb.WriteString(ScoresTable(fc.Results, false))
	}
	return sb.String()
}

func renderRules(s *core.ScoreBreakdown) string {
	var sb strings.Builder
	for _, r := range s.Rules {
		points := passStyle.Render(fmt.Sprintf("%+d", r.Points))
		if r.Points < 0 {
			points = failStyle.Render(fmt.Sprintf("%+d", r.Points))
		}
		sb.WriteString(fmt.Sprintf("    %-28s %s  %s\n", r.RuleID, points, mutedStyle.Render(r.Reason)))
	}
	return sb.String()
}

func formatSafety(r *core.DomainValidationResult) string {
	switch {
	case r.IsBlocked:
		return failStyle.Render("blocked")
	case r.FailedOpen:
		return warnStyle.Render("unknown")
	default:
		return passStyle.Render("safe")
	}
}

func formatAction(a core.Action) string {
	if a == core.ActionQuarantine {
		return failStyle.Render(string(a))
	}
	return passStyle.Render(string(a))
}

func formatBand(b core.ConfidenceBand) string {
	switch b {
	case core.BandHigh:
		return passStyle.Render(string(b))
	case core.BandMedium:
		return warnStyle.Render(string(b))
	default:
		return failStyle.Render(string(b))
	}
}

func formatCount(count int) string {
	if count == 0 {
		return mutedStyle.Render("0")
	}
	return failStyle.Render(fmt.Sprintf("%d", count))
}

func formatPercent(n, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(n) / float64(total) * 100
	}
	return fmt.Sprintf("%4d  %s", n, mutedStyle.Render(fmt.Sprintf("(%.1f%%)", pct)))
}

func messageLabel(id string) string {
	if id == "" {
		return mutedStyle.Render("(no id)")
	}
	return id
}

func renderTableRow(cells []string, widths []int, isHeader bool) string {
	var parts []string

	for i, cell := range cells {
		width := 15
		if i < len(widths) {
			width = widths[i]
		}

		// lipgloss.Width ignores ANSI codes
		visualWidth := lipgloss.Width(cell)

		padded := cell
		if visualWidth < width {
			padded = cell + strings.Repeat(" ", width-visualWidth)
		} else if visualWidth > width {
			stripped := []rune(stripANSI(cell))
			if len(stripped) > width-3 {
				padded = string(stripped[:width-3]) + "..."
			}
		}

		if isHeader {
			parts = append(parts, headerStyle.Render(padded))
		} else {
			parts = append(parts, cellStyle.Render(padded))
		}
	}

	return strings.Join(parts, "")
}

// stripANSI removes ANSI escape sequences from a string
func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
