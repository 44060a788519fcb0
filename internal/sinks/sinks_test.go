package sinks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandChannelTrySendAndDrain(t *testing.T) {
	cc := NewCommandChannel[int](2)
	require.NoError(t, cc.TrySend(1))
	require.NoError(t, cc.TrySend(2))
	require.ErrorIs(t, cc.TrySend(3), ErrSendFailed)

	got := cc.Drain()
	require.Equal(t, []int{1, 2}, got)
	require.Nil(t, cc.Drain())
}

func TestLogfNilIsNoop(t *testing.T) {
	require.NotPanics(t, func() {
		Logf(nil, "hello %d", 1)
	})
}

func TestLogfCallsFunc(t *testing.T) {
	var got string
	Logf(func(msg string) { got = msg }, "value=%d", 42)
	require.Equal(t, "value=42", got)
}
