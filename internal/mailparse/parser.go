// Package mailparse converts raw RFC 5322 messages into core.Message values.
package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// Parse reads one message and extracts the fields the threat pipeline uses
func Parse(r io.Reader) (*core.Message, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return FromEnvelope(env), nil
}

// ParseBytes parses a message held in memory
func ParseBytes(raw []byte) (*core.Message, error) {
	return Parse(bytes.NewReader(raw))
}

// FromEnvelope maps an already parsed envelope
func FromEnvelope(env *enmime.Envelope) *core.Message {
	headers := make(map[string][]string)
	for _, key := range env.GetHeaderKeys() {
		headers[key] = env.GetHeaderValues(key)
	}

	msg := &core.Message{
		From:       env.GetHeader("From"),
		ReplyTo:    env.GetHeader("Reply-To"),
		ReturnPath: env.GetHeader("Return-Path"),
		Subject:    env.GetHeader("Subject"),
		MessageID:  strings.TrimSpace(env.GetHeader("Message-ID")),
		Text:       env.Text,
		HTML:       env.HTML,
		Headers:    headers,
	}
	msg.ID = msg.MessageID

	for _, key := range []string{"To", "Cc"} {
		for _, v := range env.GetHeaderValues(key) {
			if strings.TrimSpace(v) != "" {
				msg.To = append(msg.To, v)
			}
		}
	}

	auth := ParseAuthResults(
		env.GetHeaderValues("Authentication-Results"),
		env.GetHeader("Received-SPF"),
	)
	msg.SPF = auth.SPF
	msg.DKIM = auth.DKIM
	msg.DMARC = auth.DMARC

	return msg
}
