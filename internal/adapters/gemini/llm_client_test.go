package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	parts := []genai.Part{
		genai.Text(`{"is_spam": false,`),
		genai.Blob{MIMEType: "image/png"},
		genai.Text(` "score": 0.1}`),
	}
	assert.Equal(t, `{"is_spam": false, "score": 0.1}`, responseText(parts))
	assert.Empty(t, responseText(nil))
}
