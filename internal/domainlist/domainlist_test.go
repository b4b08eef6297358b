package domainlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLists(t *testing.T) {
	l := New([]string{" Corp.Example.com. "}, []string{"evil.net", ""}, zap.NewNop())

	assert.Equal(t, []string{"corp.example.com"}, l.Allowed())
	assert.Equal(t, []string{"evil.net"}, l.Blocked())

	assert.True(t, l.IsBlocked("evil.net"))
	assert.True(t, l.IsBlocked("login.EVIL.net"))
	assert.False(t, l.IsBlocked("notevil.net"))

	assert.True(t, l.IsAllowed("corp.example.com"))
	assert.False(t, l.IsAllowed("example.com"))
}

func TestNilLists(t *testing.T) {
	var l *Lists
	assert.False(t, l.IsBlocked("evil.net"))
	assert.False(t, l.IsAllowed("corp.example.com"))
	assert.Nil(t, l.Blocked())
}
