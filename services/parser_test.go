package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

func TestParseTextStampsFreshID(t *testing.T) {
	svc := &ParserService{}

	msg, err := svc.ParseText(model.Message{ID: "client-picked", Type: "text", From: "alice", Read: true, Contain: "hello"})
	require.NoError(t, err)
	assert.NotEqual(t, "client-picked", msg.ID)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Read)
}

func TestParseTextRejections(t *testing.T) {
	svc := &ParserService{}

	tests := []struct {
		name   string
		msg    model.Message
		status string
	}{
		{"wrong type", model.Message{Type: "img", From: "alice", Contain: "deadbeef"}, shared.StatusTypeIncorrect},
		{"empty sender", model.Message{Type: "text", From: "  ", Contain: "hello"}, shared.StatusBadSyntax},
		{"empty body", model.Message{Type: "text", From: "alice"}, shared.StatusBadSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseText(tt.msg)
			appErr, ok := shared.GetAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

func TestParseBinary(t *testing.T) {
	svc := &ParserService{}

	msg, err := svc.ParseBinary(model.Message{Type: "img", From: "alice", Contain: "deadbeef"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	_, err = svc.ParseBinary(model.Message{Type: "img", From: "alice", Contain: "not-hex"})
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, shared.StatusBadImageSize, appErr.Status)

	_, err = svc.ParseBinary(model.Message{Type: "video", From: "alice", Contain: "abc"})
	appErr, ok = shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, shared.StatusBadVideoSize, appErr.Status, "odd-length hex is invalid")

	_, err = svc.ParseBinary(model.Message{Type: "text", From: "alice", Contain: "deadbeef"})
	appErr, ok = shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, shared.StatusTypeIncorrect, appErr.Status)
}

func TestIsHex(t *testing.T) {
	svc := &ParserService{}

	assert.True(t, svc.IsHex("deadBEEF00"))
	assert.False(t, svc.IsHex(""))
	assert.False(t, svc.IsHex("abc"))
	assert.False(t, svc.IsHex("zzzz"))
}

func TestCheckPayloadSize(t *testing.T) {
	svc := &ParserService{}

	assert.True(t, svc.CheckPayloadSize(strings.Repeat("ab", maxBinaryPayloadBytes)))
	assert.False(t, svc.CheckPayloadSize(strings.Repeat("ab", maxBinaryPayloadBytes+1)))
}
