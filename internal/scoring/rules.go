package scoring

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// Rule is one scoring rule. Rules are evaluated in table order and every
// rule whose predicate holds contributes its points.
type Rule struct {
	ID     string
	Points int
	When   func(e *evaluation) bool
	Reason func(e *evaluation) string
}

func reason(s string) func(*evaluation) string {
	return func(*evaluation) string { return s }
}

// Rules is the ordered rule table
var Rules = []Rule{
	{
		ID:     "FREE_EMAIL_FINANCIAL",
		Points: -40,
		When:   func(e *evaluation) bool { return e.freeMail && e.financial },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("financial subject sent from free-mail provider %s", e.from.Domain)
		},
	},
	{
		ID:     "SUSPICIOUS_TLD",
		Points: -15,
		When:   func(e *evaluation) bool { return e.suspiciousTLD },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("sender domain %s uses a commonly abused TLD", e.from.Domain)
		},
	},
	{
		ID:     "REPLY_TO_MISMATCH",
		Points: -20,
		When:   func(e *evaluation) bool { return e.replyTo != nil && e.replyTo.Domain != e.from.Domain },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("replies go to %s instead of %s", e.replyTo.Domain, e.from.Domain)
		},
	},
	{
		ID:     "TYPOSQUATTING",
		Points: -30,
		When:   func(e *evaluation) bool { return e.typosquat.IsTyposquatting },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("sender domain %s imitates %s (%s)", e.from.Domain, e.typosquat.MatchedDomain, e.typosquat.Technique)
		},
	},
	{
		ID:     "DISPLAY_NAME_SPOOFING",
		Points: -25,
		When:   func(e *evaluation) bool { return e.roleDisplayName && e.freeMail },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("display name %q claims an organisation but uses %s", e.from.DisplayName, e.from.Domain)
		},
	},
	{
		ID:     "URGENT_FINANCIAL",
		Points: -20,
		When:   func(e *evaluation) bool { return e.urgent && e.financial },
		Reason: reason("subject combines urgency with a financial request"),
	},
	{
		ID:     "MISSING_MESSAGE_ID",
		Points: -10,
		When:   func(e *evaluation) bool { return e.messageID == "" },
		Reason: reason("no Message-ID header"),
	},
	{
		ID:     "INVALID_MESSAGE_ID",
		Points: -15,
		When:   func(e *evaluation) bool { return e.messageID != "" && e.messageIDDomain != e.from.Domain },
		Reason: func(e *evaluation) string {
			if e.messageIDDomain == "" {
				return "Message-ID has no domain"
			}
			return fmt.Sprintf("Message-ID domain %s does not match sender domain %s", e.messageIDDomain, e.from.Domain)
		},
	},
	{
		ID:     "RETURN_PATH_MISMATCH",
		Points: -15,
		When:   func(e *evaluation) bool { return e.returnPath != nil && e.returnPath.Domain != e.from.Domain },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("return path %s does not match sender domain %s", e.returnPath.Domain, e.from.Domain)
		},
	},
	{
		ID:     "SPF_PASS",
		Points: 15,
		When:   func(e *evaluation) bool { return e.spf == authPass },
		Reason: reason("SPF passed"),
	},
	{
		ID:     "SPF_FAIL",
		Points: -20,
		When:   func(e *evaluation) bool { return e.spf != "" && e.spf != authPass },
		Reason: func(e *evaluation) string { return "SPF result: " + e.spf },
	},
	{
		ID:     "DKIM_PASS",
		Points: 20,
		When:   func(e *evaluation) bool { return e.dkim == authPass },
		Reason: reason("DKIM passed"),
	},
	{
		ID:     "DKIM_FAIL",
		Points: -25,
		When:   func(e *evaluation) bool { return e.dkim != "" && e.dkim != authPass },
		Reason: func(e *evaluation) string { return "DKIM result: " + e.dkim },
	},
	{
		ID:     "DMARC_PASS",
		Points: 25,
		When:   func(e *evaluation) bool { return e.dmarc == authPass },
		Reason: reason("DMARC passed"),
	},
	{
		ID:     "DMARC_FAIL",
		Points: -30,
		When:   func(e *evaluation) bool { return e.dmarc != "" && e.dmarc != authPass },
		Reason: func(e *evaluation) string { return "DMARC result: " + e.dmarc },
	},
	{
		ID:     "FULL_AUTH_SUITE",
		Points: 10,
		When: func(e *evaluation) bool {
			return e.spf == authPass && e.dkim == authPass && e.dmarc == authPass
		},
		Reason: reason("SPF, DKIM and DMARC all passed"),
	},
	{
		ID:     "CORPORATE_DOMAIN",
		Points: 10,
		When:   func(e *evaluation) bool { return !e.freeMail && !e.suspiciousTLD },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("sender uses organisational domain %s", e.from.Domain)
		},
	},
	{
		ID:     "KNOWN_LEGITIMATE_DOMAIN",
		Points: 20,
		When:   func(e *evaluation) bool { return e.knownLegitimate },
		Reason: func(e *evaluation) string {
			return fmt.Sprintf("%s is a well-known legitimate domain", e.from.Domain)
		},
	},
}

const authPass = "pass"

// evaluation is the parsed header state every rule reads
type evaluation struct {
	from            *core.ParsedAddress
	replyTo         *core.ParsedAddress
	returnPath      *core.ParsedAddress
	messageID       string
	messageIDDomain string
	spf             string
	dkim            string
	dmarc           string

	freeMail        bool
	suspiciousTLD   bool
	financial       bool
	urgent          bool
	roleDisplayName bool
	knownLegitimate bool
	typosquat       *core.TyposquatResult
}

// authResult reduces "pass (reason)" style values to the bare result keyword
func authResult(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ";,")
}

// messageIDDomain returns the part after @ of <local@domain>
func messageIDDomain(id string) string {
	id = strings.Trim(strings.TrimSpace(id), "<>")
	at := strings.LastIndex(id, "@")
	if at < 0 || at == len(id)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimRight(id[at+1:], "."))
}
