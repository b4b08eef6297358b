package firewall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/miekg/dns"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// UserAgent is sent with every DoH query
var UserAgent = "mail-threat-filter/1.0"

const maxResponseBytes = 1 << 20

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// dohVerdict is a definitive answer from the provider
type dohVerdict struct {
	safe   bool
	status int
}

// rcode returns the symbolic DNS response code
func (d dohVerdict) rcode() string {
	if s, ok := dns.RcodeToString[d.status]; ok {
		return s
	}
	return fmt.Sprintf("RCODE%d", d.status)
}

// query issues one A query for domain. Any error means no definitive answer.
func (v *Validator) query(ctx context.Context, provider *core.ProviderConfig, domain string) (dohVerdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.Endpoint, nil)
	if err != nil {
		return dohVerdict{}, fmt.Errorf("failed to build DoH request: %w", err)
	}

	q := req.URL.Query()
	q.Set("name", domain)
	q.Set("type", dns.TypeToString[dns.TypeA])
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/dns-json")
	req.Header.Set("User-Agent", UserAgent)
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return dohVerdict{}, fmt.Errorf("DoH query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dohVerdict{}, fmt.Errorf("DoH query returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return dohVerdict{}, fmt.Errorf("failed to read DoH response: %w", err)
	}

	return parseDohResponse(body)
}

// parseDohResponse decides SAFE iff the status is NOERROR and the answer is non-empty
func parseDohResponse(body []byte) (dohVerdict, error) {
	var data dohResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return dohVerdict{}, fmt.Errorf("failed to parse DoH response: %w", err)
	}

	return dohVerdict{
		safe:   data.Status == dns.RcodeSuccess && len(data.Answer) > 0,
		status: data.Status,
	}, nil
}
