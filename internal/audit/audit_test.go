package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Record(ctx, "ep0", KindConnected, SeverityInfo, "modbus 10.0.0.1:502 connected", now))
	require.NoError(t, l.Record(ctx, "ep0", KindRetryEscalation, SeverityWarn, "exceeded retry budget", now.Add(time.Second)))
	require.NoError(t, l.Record(ctx, "ep1", KindConnected, SeverityInfo, "other endpoint", now))

	events, err := l.Recent(ctx, "ep0", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, KindRetryEscalation, events[0].Kind)
	require.Equal(t, KindConnected, events[1].Kind)
}

func TestRecentRespectsLimit(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, "ep0", KindOperational, SeverityInfo, "tick", time.Now()))
	}
	events, err := l.Recent(ctx, "ep0", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCountBySeverity(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	require.NoError(t, l.Record(ctx, "ep0", KindConnected, SeverityInfo, "a", time.Now()))
	require.NoError(t, l.Record(ctx, "ep0", KindTimedOut, SeverityError, "b", time.Now()))
	require.NoError(t, l.Record(ctx, "ep0", KindTimedOut, SeverityError, "c", time.Now()))

	counts, err := l.CountBySeverity(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[SeverityInfo])
	require.Equal(t, 2, counts[SeverityError])
}

func TestLogSinkClassifiesAndForwards(t *testing.T) {
	l := openTest(t)
	var forwarded []string
	sink := l.LogSink("ep0", func(msg string) { forwarded = append(forwarded, msg) })

	sink("modbus 10.0.0.1:502 connected")
	sink("modbus 10.0.0.1:502 exceeded retry budget, terminating")

	require.Len(t, forwarded, 2)
	events, err := l.Recent(context.Background(), "ep0", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, KindRetryEscalation, events[0].Kind)
	require.Equal(t, KindConnected, events[1].Kind)
}
