package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SyncError
		want string
	}{
		{
			name: "code and message",
			err:  &SyncError{Code: ErrCodeDecodeFailed, Message: "undecodable record"},
			want: "DECODE_FAILED: undecodable record",
		},
		{
			name: "with key",
			err:  &SyncError{Code: ErrCodeFetchFailed, Message: "read value", Key: "0xab"},
			want: "FETCH_FAILED: read value (key=0xab)",
		},
		{
			name: "with cause",
			err:  &SyncError{Code: ErrCodeLedgerUnavailable, Message: "subscribe failed", Err: errors.New("refused")},
			want: "LEDGER_UNAVAILABLE: subscribe failed: refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSyncError_Helpers(t *testing.T) {
	cause := errors.New("socket closed")
	dropped := fmt.Errorf("node: %w", NewSubscriptionDroppedError(cause))
	unavailable := NewLedgerUnavailableError("enumerate keys", cause)

	assert.True(t, IsSubscriptionDropped(dropped))
	assert.False(t, IsLedgerUnavailable(dropped))
	assert.True(t, IsLedgerUnavailable(unavailable))
	assert.False(t, IsSubscriptionDropped(unavailable))
	assert.ErrorIs(t, dropped, cause)

	assert.False(t, IsSubscriptionDropped(nil))
	assert.False(t, IsLedgerUnavailable(errors.New("plain")))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "UNSTARTED", StateUnstarted.String())
	assert.Equal(t, "LIVE", StateLive.String())
	assert.Equal(t, "SHUTDOWN", StateShutdown.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestParseState(t *testing.T) {
	for s := StateUnstarted; s <= StateShutdown; s++ {
		got, ok := ParseState(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseState("live")
	assert.False(t, ok)
}
