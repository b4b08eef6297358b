package mailparse

import (
	"regexp"
	"strings"
)

// AuthResults are the bare SPF, DKIM and DMARC result keywords of a message
type AuthResults struct {
	SPF   string
	DKIM  string
	DMARC string
}

var (
	spfRe   = regexp.MustCompile(`(?i)\bspf=(pass|fail|softfail|neutral|none|temperror|permerror)\b`)
	dkimRe  = regexp.MustCompile(`(?i)\bdkim=(pass|fail|none|neutral|policy|temperror|permerror)\b`)
	dmarcRe = regexp.MustCompile(`(?i)\bdmarc=(pass|fail|none|bestguesspass|temperror|permerror)\b`)

	spfStatuses = []string{"pass", "fail", "softfail", "neutral", "none", "temperror", "permerror"}
)

// ParseAuthResults reads Authentication-Results headers, topmost first. The
// first result of each method wins. Received-SPF is consulted when no SPF
// result was found.
func ParseAuthResults(headers []string, receivedSPF string) AuthResults {
	var res AuthResults

	for _, ar := range headers {
		for _, part := range strings.Split(ar, ";") {
			part = strings.TrimSpace(part)
			lower := strings.ToLower(part)

			switch {
			case strings.HasPrefix(lower, "spf=") && res.SPF == "":
				res.SPF = authPart(part)
			case strings.HasPrefix(lower, "dkim=") && res.DKIM == "":
				res.DKIM = authPart(part)
			case strings.HasPrefix(lower, "dmarc=") && res.DMARC == "":
				res.DMARC = authPart(part)
			}
		}
	}

	// the authserv-id may share the first segment with a result
	if res.SPF == "" || res.DKIM == "" || res.DMARC == "" {
		raw := strings.Join(headers, "\n")
		if res.SPF == "" {
			res.SPF = firstMatch(spfRe, raw)
		}
		if res.DKIM == "" {
			res.DKIM = firstMatch(dkimRe, raw)
		}
		if res.DMARC == "" {
			res.DMARC = firstMatch(dmarcRe, raw)
		}
	}

	if res.SPF == "" && receivedSPF != "" {
		lower := strings.ToLower(strings.TrimSpace(receivedSPF))
		for _, status := range spfStatuses {
			if strings.HasPrefix(lower, status) {
				res.SPF = status
				break
			}
		}
	}

	return res
}

// authPart returns the result keyword of "method=result (comment) props"
func authPart(part string) string {
	eq := strings.Index(part, "=")
	if eq == -1 {
		return ""
	}
	remainder := strings.TrimSpace(part[eq+1:])
	if end := strings.IndexAny(remainder, " \t("); end > 0 {
		remainder = remainder[:end]
	}
	return strings.ToLower(remainder)
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}
