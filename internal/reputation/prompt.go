// Package reputation holds the sender reputation plumbing shared by the
// third-party providers: the prompt, response decoding and a caching wrapper.
package reputation

import (
	"fmt"
	"time"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/utils"
)

// SystemPrompt is sent as the system role where the provider supports one
const SystemPrompt = "You are an email sender reputation service. Respond only with JSON."

const promptFormat = `You are an email sender reputation service. Assess whether the following sender is likely to send spam or phishing.
Respond with a JSON object containing:
- is_spam: boolean (true if the sender is likely malicious or a spammer)
- score: number between 0 and 1 (higher means a worse reputation)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of the assessment)

Sender address: %s
Display name: %s
Subject: %s
Message excerpt:
%s

Respond only with the JSON object and nothing else.`

// Response is the JSON object the models are asked to produce
type Response struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildPrompt formats the user prompt for req, limiting the body to maxBodySize bytes
func BuildPrompt(tp *utils.TextProcessor, req *core.ReputationRequest, maxBodySize int) string {
	return fmt.Sprintf(promptFormat,
		req.Address,
		req.DisplayName,
		tp.SanitizeUTF8(req.Subject),
		tp.ProcessText(req.Body, maxBodySize))
}

// DecodeResponse turns raw model output into a normalized record
func DecodeResponse(tp *utils.TextProcessor, text string, req *core.ReputationRequest, source string) (*core.ReputationRecord, error) {
	var resp Response
	if err := tp.DecodeJSONObject(text, &resp); err != nil {
		return nil, err
	}
	return &core.ReputationRecord{
		Address:     req.Address,
		IsSpam:      resp.IsSpam,
		Score:       unit(resp.Score),
		Confidence:  unit(resp.Confidence),
		Explanation: resp.Explanation,
		Source:      source,
		CheckedAt:   time.Now(),
	}, nil
}

// unit clamps v into [0, 1]
func unit(v float64) float64 {
	return max(0, min(1, v))
}
