package ports

import (
	"context"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// EmailFilter defines the interface for email filtering
type EmailFilter interface {
	// ProcessMessage assesses a message and returns the verdict
	ProcessMessage(ctx context.Context, msg *core.Message) (*core.Assessment, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
