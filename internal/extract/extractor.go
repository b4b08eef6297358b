// Package extract pulls normalized domain names out of message headers and bodies.
package extract

import (
	"mime"
	"regexp"
	"strings"

	"github.com/mikey/mail-threat-filter/internal/core"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@([a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)
	urlRegex   = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.\-]*://([^\s/?#"'<>()\\]+)`)
	portRegex  = regexp.MustCompile(`:\d+$`)

	angleAddrRegex = regexp.MustCompile(`^\s*(.*?)\s*<\s*([^<>@\s]+@([^<>@\s]+))\s*>\s*$`)
	bareAddrRegex  = regexp.MustCompile(`^\s*<?([^<>@\s"]+@([^<>@\s"]+))>?\s*$`)
)

var wordDecoder = new(mime.WordDecoder)

// Extractor turns raw message text into a deduplicated set of domains
type Extractor struct{}

// NewExtractor creates a new domain extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// NormalizeDomain lower-cases raw and strips surrounding space, trailing dots
// and any trailing ports. It returns false if the result is not a plausible
// domain.
func NormalizeDomain(raw string) (string, bool) {
	d := strings.ToLower(raw)
	for {
		next := strings.TrimSpace(d)
		next = strings.TrimRight(next, ".")
		next = strings.TrimSpace(portRegex.ReplaceAllString(next, ""))
		if next == d {
			break
		}
		d = next
	}

	if strings.ContainsAny(d, ": \t\r\n") {
		return "", false
	}
	if !strings.Contains(d, ".") || len(d) < 4 {
		return "", false
	}
	if strings.HasPrefix(d, ".") || strings.HasSuffix(d, ".") {
		return "", false
	}
	return d, true
}

// ParseAddress parses `"Name" <user@domain>` or a bare `user@domain`.
func ParseAddress(raw string) (*core.ParsedAddress, bool) {
	if m := angleAddrRegex.FindStringSubmatch(raw); m != nil {
		domain := strings.ToLower(m[3])
		if domain == "" {
			return nil, false
		}
		return &core.ParsedAddress{
			Address:     m[2],
			Domain:      domain,
			DisplayName: decodeDisplayName(m[1]),
		}, true
	}

	if m := bareAddrRegex.FindStringSubmatch(raw); m != nil {
		domain := strings.ToLower(m[2])
		if domain == "" {
			return nil, false
		}
		return &core.ParsedAddress{
			Address: m[1],
			Domain:  domain,
		}, true
	}

	return nil, false
}

func decodeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	if decoded, err := wordDecoder.DecodeHeader(name); err == nil {
		name = decoded
	}
	return strings.TrimSpace(name)
}

// domainSet keeps first-occurrence order
type domainSet struct {
	seen  map[string]struct{}
	order []string
}

func newDomainSet() *domainSet {
	return &domainSet{seen: make(map[string]struct{})}
}

func (s *domainSet) add(raw string) {
	d, ok := NormalizeDomain(raw)
	if !ok {
		return
	}
	if _, exists := s.seen[d]; exists {
		return
	}
	s.seen[d] = struct{}{}
	s.order = append(s.order, d)
}

func (s *domainSet) merge(domains []string) {
	for _, d := range domains {
		s.add(d)
	}
}

// ExtractFromHeaders collects the domains of every address in the From, To and Reply-To fields
func (e *Extractor) ExtractFromHeaders(from string, to []string, replyTo string) []string {
	set := newDomainSet()

	fields := make([]string, 0, len(to)+2)
	fields = append(fields, from)
	fields = append(fields, to...)
	fields = append(fields, replyTo)

	for _, field := range fields {
		for _, m := range emailRegex.FindAllStringSubmatch(field, -1) {
			set.add(m[1])
		}
	}
	return set.order
}

// ExtractFromBody scans plain text and raw HTML for URLs and bare email addresses
func (e *Extractor) ExtractFromBody(text, html string) []string {
	set := newDomainSet()
	for _, content := range []string{text, html} {
		if content == "" {
			continue
		}
		for _, m := range urlRegex.FindAllStringSubmatch(content, -1) {
			set.add(hostFromAuthority(m[1]))
		}
		for _, m := range emailRegex.FindAllStringSubmatch(content, -1) {
			set.add(m[1])
		}
	}
	return set.order
}

// ExtractAllDomains returns header domains followed by body domains, each once
func (e *Extractor) ExtractAllDomains(msg *core.Message) []string {
	if msg == nil {
		return nil
	}
	set := newDomainSet()
	set.merge(e.ExtractFromHeaders(msg.From, msg.To, msg.ReplyTo))
	set.merge(e.ExtractFromBody(msg.Text, msg.HTML))
	return set.order
}

// hostFromAuthority drops any userinfo from a URL authority
func hostFromAuthority(authority string) string {
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}
	return authority
}

// ParseAddress implements core.DomainExtractor
func (e *Extractor) ParseAddress(raw string) (*core.ParsedAddress, bool) {
	return ParseAddress(raw)
}
