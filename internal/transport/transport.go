// Package transport builds the byte-stream handles (TCP dial, serial port
// open) that the Modbus ADU/PDU layers above it frame and parse. It carries
// no protocol knowledge of its own.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/goburrow/serial"
)

// SerialParams configures a RTU endpoint's serial port, defaulted the way
// the teacher's utils.SerialParams is (EnsureSerialDefaults).
type SerialParams struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// WithDefaults fills zero fields with the conventional Modbus RTU settings:
// 9600 8N1, a 10s read timeout.
func (sp SerialParams) WithDefaults() SerialParams {
	if sp.BaudRate == 0 {
		sp.BaudRate = 9600
	}
	if sp.DataBits == 0 {
		sp.DataBits = 8
	}
	if sp.StopBits == 0 {
		sp.StopBits = 1
	}
	if sp.Parity == "" {
		sp.Parity = "N"
	}
	if sp.Timeout <= 0 {
		sp.Timeout = 10 * time.Second
	}
	return sp
}

// OpenSerial opens the configured serial port for a RTU endpoint.
func OpenSerial(sp SerialParams) (io.ReadWriteCloser, error) {
	sp = sp.WithDefaults()
	return serial.Open(&serial.Config{
		Address:  sp.Address,
		BaudRate: sp.BaudRate,
		DataBits: sp.DataBits,
		StopBits: sp.StopBits,
		Parity:   sp.Parity,
		Timeout:  sp.Timeout,
	})
}

// TCPParams configures a TCP endpoint.
type TCPParams struct {
	Address string // host:port, spec.md §1 default port 502
	Timeout time.Duration
}

// WithDefaults fills in the dial timeout when left unset. Address is used as
// given; no default port is added here.
func (tp TCPParams) WithDefaults() TCPParams {
	if tp.Timeout <= 0 {
		tp.Timeout = 5 * time.Second
	}
	return tp
}

// DialTCP connects to a Modbus TCP endpoint (client role).
func DialTCP(ctx context.Context, tp TCPParams) (net.Conn, error) {
	tp = tp.WithDefaults()
	d := net.Dialer{Timeout: tp.Timeout}
	conn, err := d.DialContext(ctx, "tcp", tp.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %s: %w", tp.Address, err)
	}
	return conn, nil
}

// ListenTCP opens a listening socket for a Modbus TCP endpoint (server role).
func ListenTCP(address string) (net.Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: listen tcp %s: %w", address, err)
	}
	return l, nil
}
