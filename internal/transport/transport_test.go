package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerialParamsDefaults(t *testing.T) {
	sp := SerialParams{Address: "/dev/ttyUSB0"}.WithDefaults()
	require.Equal(t, 9600, sp.BaudRate)
	require.Equal(t, 8, sp.DataBits)
	require.Equal(t, 1, sp.StopBits)
	require.Equal(t, "N", sp.Parity)
	require.Equal(t, 10*time.Second, sp.Timeout)
}

func TestSerialParamsPreservesOverrides(t *testing.T) {
	sp := SerialParams{Address: "/dev/ttyUSB0", BaudRate: 19200, Parity: "E"}.WithDefaults()
	require.Equal(t, 19200, sp.BaudRate)
	require.Equal(t, "E", sp.Parity)
}

func TestTCPParamsDefaults(t *testing.T) {
	tp := TCPParams{Address: "127.0.0.1:502"}.WithDefaults()
	require.Equal(t, 5*time.Second, tp.Timeout)
}

func TestListenTCPOnEphemeralPort(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	require.NotEmpty(t, l.Addr().String())
}
