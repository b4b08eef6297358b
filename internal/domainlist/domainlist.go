// Package domainlist holds operator-configured allowed and blocked domains.
package domainlist

import (
	"strings"

	"go.uber.org/zap"
)

// Lists is an explicit allow/block configuration passed to the validator.
// A listed domain also covers its subdomains.
type Lists struct {
	allowed []string
	blocked []string
}

// New creates the lists, normalizing every entry
func New(allowed, blocked []string, logger *zap.Logger) *Lists {
	l := &Lists{
		allowed: normalize(allowed),
		blocked: normalize(blocked),
	}

	if logger != nil && (len(l.allowed) > 0 || len(l.blocked) > 0) {
		logger.Info("Initialized custom domain lists",
			zap.Strings("allowed", l.allowed),
			zap.Strings("blocked", l.blocked))
	}
	return l
}

func normalize(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimRight(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// IsBlocked reports whether domain is on the block list
func (l *Lists) IsBlocked(domain string) bool {
	if l == nil {
		return false
	}
	return matches(l.blocked, domain)
}

// IsAllowed reports whether domain is on the allow list
func (l *Lists) IsAllowed(domain string) bool {
	if l == nil {
		return false
	}
	return matches(l.allowed, domain)
}

// Blocked returns the normalized block list
func (l *Lists) Blocked() []string {
	if l == nil {
		return nil
	}
	return l.blocked
}

// Allowed returns the normalized allow list
func (l *Lists) Allowed() []string {
	if l == nil {
		return nil
	}
	return l.allowed
}

func matches(list []string, domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range list {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
