package mailparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartMessage = "Return-Path: <bounce@mailer.example.net>\r\n" +
	"Authentication-Results: mx.example.org;\r\n" +
	" spf=pass smtp.mailfrom=example.com;\r\n" +
	" dkim=fail (bad signature) header.d=example.com;\r\n" +
	" dkim=pass header.d=mailer.example.net;\r\n" +
	" dmarc=fail (p=reject) header.from=example.com\r\n" +
	"From: =?UTF-8?Q?Acme_Billing?= <billing@example.com>\r\n" +
	"To: Bob <bob@corp.example>, carol@corp.example\r\n" +
	"Cc: dave@partner.example\r\n" +
	"Reply-To: payments@collector.example\r\n" +
	"Subject: =?UTF-8?Q?Invoice_overdue?=\r\n" +
	"Message-ID: <123@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Pay at https://pay.collector.example/now\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<a href=\"https://pay.collector.example/now\">Pay</a>\r\n" +
	"--b1--\r\n"

func TestParse(t *testing.T) {
	msg, err := Parse(strings.NewReader(multipartMessage))
	require.NoError(t, err)

	assert.Contains(t, msg.From, "Acme Billing")
	assert.Contains(t, msg.From, "<billing@example.com>")
	assert.Equal(t, "payments@collector.example", msg.ReplyTo)
	assert.Equal(t, "<bounce@mailer.example.net>", msg.ReturnPath)
	assert.Equal(t, "Invoice overdue", msg.Subject)
	assert.Equal(t, "<123@example.com>", msg.MessageID)
	assert.Equal(t, msg.MessageID, msg.ID)
	assert.Len(t, msg.To, 2)
	assert.Contains(t, msg.To[0], "bob@corp.example")
	assert.Contains(t, msg.To[1], "dave@partner.example")
	assert.Contains(t, msg.Text, "https://pay.collector.example/now")
	assert.Contains(t, msg.HTML, `href="https://pay.collector.example/now"`)

	assert.Equal(t, "pass", msg.SPF)
	assert.Equal(t, "fail", msg.DKIM, "first DKIM result is kept")
	assert.Equal(t, "fail", msg.DMARC)
	assert.NotEmpty(t, msg.Headers["Subject"])
}

func TestParseAuthResults(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		receivedSPF string
		want        AuthResults
	}{
		{
			name:    "result in first segment",
			headers: []string{"mx.google.com; dkim=pass header.i=@a.com; spf=softfail smtp.mailfrom=a.com"},
			want:    AuthResults{SPF: "softfail", DKIM: "pass"},
		},
		{
			name:    "topmost header wins",
			headers: []string{"mx.local; spf=pass; dmarc=pass", "relay.other; spf=fail; dmarc=fail"},
			want:    AuthResults{SPF: "pass", DMARC: "pass"},
		},
		{
			name:    "raw scan fallback",
			headers: []string{"mx.local dkim=pass"},
			want:    AuthResults{DKIM: "pass"},
		},
		{
			name:        "received-spf fallback",
			receivedSPF: "SoftFail (domain of transitioning a.com does not designate 192.0.2.1)",
			want:        AuthResults{SPF: "softfail"},
		},
		{
			name: "nothing",
			want: AuthResults{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuthResults(tt.headers, tt.receivedSPF))
		})
	}
}
