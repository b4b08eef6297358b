package scoring

import (
	"github.com/mikey/mail-threat-filter/internal/typosquat"
)

// Config holds the keyword and domain lists the rules match against
type Config struct {
	FreeMailProviders []string
	SuspiciousTLDs    []string
	FinancialKeywords []string
	UrgencyKeywords   []string
	RoleKeywords      []string
	LegitimateDomains []string
}

// DefaultConfig returns the built-in lists
func DefaultConfig() Config {
	return Config{
		FreeMailProviders: []string{
			"gmail.com", "googlemail.com", "yahoo.com", "ymail.com", "hotmail.com",
			"outlook.com", "live.com", "msn.com", "aol.com", "icloud.com", "me.com",
			"mail.com", "gmx.com", "gmx.net", "yandex.com", "yandex.ru", "protonmail.com",
			"proton.me", "zoho.com", "mail.ru", "qq.com", "163.com",
		},
		SuspiciousTLDs: []string{
			".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".work", ".click",
			".link", ".zip", ".review", ".country", ".kim", ".loan", ".men", ".buzz",
			".rest", ".fit", ".icu",
		},
		FinancialKeywords: []string{
			"payment", "invoice", "wire", "transfer", "bank", "account", "refund",
			"bitcoin", "crypto", "gift card", "tax", "payroll", "funds", "transaction",
			"credit card", "remittance", "overdue",
		},
		UrgencyKeywords: []string{
			"urgent", "immediately", "asap", "action required", "final notice",
			"verify", "suspended", "expire", "expires", "within 24 hours", "important",
			"right away",
		},
		RoleKeywords: []string{
			"ceo", "cfo", "president", "director", "manager", "admin", "administrator",
			"support", "security", "billing", "hr", "payroll", "it department", "helpdesk",
			"paypal", "microsoft", "apple", "amazon", "google", "bank", "netflix",
		},
		LegitimateDomains: typosquat.DefaultLegitimateDomains,
	}
}

// withDefaults fills empty lists from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.FreeMailProviders) == 0 {
		c.FreeMailProviders = d.FreeMailProviders
	}
	if len(c.SuspiciousTLDs) == 0 {
		c.SuspiciousTLDs = d.SuspiciousTLDs
	}
	if len(c.FinancialKeywords) == 0 {
		c.FinancialKeywords = d.FinancialKeywords
	}
	if len(c.UrgencyKeywords) == 0 {
		c.UrgencyKeywords = d.UrgencyKeywords
	}
	if len(c.RoleKeywords) == 0 {
		c.RoleKeywords = d.RoleKeywords
	}
	if len(c.LegitimateDomains) == 0 {
		c.LegitimateDomains = d.LegitimateDomains
	}
	return c
}
