package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseID(t *testing.T) {
	m, err := NewMailbox(Config{Address: "imap.example.com:993"}, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		id     string
		folder string
		uid    uint32
		err    bool
	}{
		{"42", "INBOX", 42, false},
		{"Archive:7", "Archive", 7, false},
		{FormatID("Lists:dev", 9), "Lists:dev", 9, false},
		{"INBOX:0", "", 0, true},
		{"abc", "", 0, true},
		{":5", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			folder, uid, err := m.parseID(tt.id)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.folder, folder)
			assert.Equal(t, tt.uid, uid)
		})
	}
}

func TestSeqRange(t *testing.T) {
	from, to := seqRange(100, 10)
	assert.Equal(t, uint32(91), from)
	assert.Equal(t, uint32(100), to)

	from, to = seqRange(5, 10)
	assert.Equal(t, uint32(1), from)
	assert.Equal(t, uint32(5), to)

	from, _ = seqRange(5, 0)
	assert.Equal(t, uint32(1), from)
}

func TestNewMailboxDefaults(t *testing.T) {
	_, err := NewMailbox(Config{}, zap.NewNop())
	assert.Error(t, err)

	m, err := NewMailbox(Config{Address: "imap.example.com:993"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "INBOX", m.cfg.Folder)
	assert.Equal(t, DefaultJunkFlag, m.cfg.JunkFlag)
}
