// Package instance implements the uniform lifecycle façade (spec.md C9) over
// the four endpoint flavors a running Modbus node can be: a TCP or RTU
// client polling engine, or a TCP or RTU server dispatcher. It generalizes
// original_source/cli/src/instance/{mod,builder,handle,error,config}.rs's
// Instance<T>/Builder/Handle/InstanceError design — a tokio task handle plus
// enum dispatch in the original — onto Go's goroutine + context.CancelFunc
// idiom, since the teacher repo never built a component like this (its
// cmd/collector and cmd/server are separate binaries run independently).
package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"modbus-core/internal/mbclient"
	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbserver"
	"modbus-core/internal/sinks"
	"modbus-core/internal/transport"
)

// Kind identifies which of the four builder variants an Instance wraps,
// mirroring Builder's four enum arms.
type Kind int

const (
	KindTCPClient Kind = iota
	KindRTUClient
	KindTCPServer
	KindRTUServer
)

func (k Kind) String() string {
	switch k {
	case KindTCPClient:
		return "tcp-client"
	case KindRTUClient:
		return "rtu-client"
	case KindTCPServer:
		return "tcp-server"
	case KindRTUServer:
		return "rtu-server"
	default:
		return "unknown"
	}
}

// Instance owns exactly one endpoint's worth of running state: at most one
// of client/tcpServer/rtuServer is populated, matching Kind.
type Instance struct {
	Kind Kind

	client     *mbclient.Client
	tcpServer  *mbserver.TCPServer
	tcpAddress string
	rtuServer  *mbserver.RTUServer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan error
}

// NewTCPClient builds a stopped Instance around a TCP client polling engine
// (spec.md §1/§4.3), grounded on Instance::with_tcp_client.
func NewTCPClient(endpoint string, tp transport.TCPParams, cfg mbclient.NetConfig, mem *mbmem.Memory) *Instance {
	return &Instance{
		Kind:   KindTCPClient,
		client: mbclient.NewTCP(endpoint, tp, cfg, mem, nil, nil),
	}
}

// NewRTUClient builds a stopped Instance around a RTU client polling engine,
// grounded on Instance::with_rtu_client.
func NewRTUClient(endpoint string, sp transport.SerialParams, cfg mbclient.NetConfig, mem *mbmem.Memory) *Instance {
	return &Instance{
		Kind:   KindRTUClient,
		client: mbclient.NewRTU(endpoint, sp, cfg, mem, nil, nil),
	}
}

// NewTCPServer builds a stopped Instance around a TCP server dispatcher,
// grounded on Instance::with_tcp_server.
func NewTCPServer(endpoint, address string, mem *mbmem.Memory) *Instance {
	return &Instance{
		Kind:       KindTCPServer,
		tcpAddress: address,
		tcpServer:  &mbserver.TCPServer{Dispatcher: &mbserver.Dispatcher{Endpoint: endpoint, Memory: mem}},
	}
}

// NewRTUServer builds a stopped Instance around a RTU server dispatcher
// talking over an already-open serial port, grounded on
// Instance::with_rtu_server.
func NewRTUServer(endpoint string, port io.ReadWriteCloser, mem *mbmem.Memory) *Instance {
	return &Instance{
		Kind:      KindRTUServer,
		rtuServer: &mbserver.RTUServer{Dispatcher: &mbserver.Dispatcher{Endpoint: endpoint, Memory: mem}, Port: port},
	}
}

// SetOperations replaces a client Instance's poll rotation (Client.SetOperations).
// It is a no-op for server instances, which have no operation rotation.
func (in *Instance) SetOperations(ops []mbclient.Operation) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.client != nil {
		in.client.SetOperations(ops)
	}
}

// Start activates the wrapped endpoint, wiring log/status sinks in. It
// fails with ErrAlreadyActive if already running (Instance::start's first
// check).
func (in *Instance) Start(log sinks.LogFunc, status sinks.StatusFunc) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.running {
		return ErrAlreadyActive
	}

	switch in.Kind {
	case KindTCPClient, KindRTUClient:
		in.client.Log = log
		in.client.Status = status
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- in.client.Run(ctx) }()
		in.cancel = cancel
		in.done = done

	case KindTCPServer:
		in.tcpServer.Dispatcher.Log = log
		if err := in.tcpServer.Listen(in.tcpAddress); err != nil {
			return fmt.Errorf("instance: start tcp server: %w", err)
		}

	case KindRTUServer:
		in.rtuServer.Dispatcher.Log = log
		done := make(chan error, 1)
		go func() { done <- in.rtuServer.Run() }()
		in.done = done
	}

	in.running = true
	return nil
}

// Stop deactivates the wrapped endpoint, waiting for its goroutine (if any)
// to unwind. It fails with ErrNotRunning if not running
// (Instance::stop's first check). A client's goroutine is cancelled and then
// waited for with no deadline, so Stop does not return until it has
// unwound; ErrCancelFailed is returned only for a Kind outside the four
// known ones.
func (in *Instance) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.running {
		return ErrNotRunning
	}
	in.running = false

	switch in.Kind {
	case KindTCPClient, KindRTUClient:
		in.cancel()
		err := <-in.done
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case KindTCPServer:
		in.tcpServer.Close()
		return nil

	case KindRTUServer:
		closeErr := in.rtuServer.Close()
		<-in.done
		if closeErr != nil {
			return fmt.Errorf("instance: stop rtu server: %w", closeErr)
		}
		return nil
	}
	return ErrCancelFailed
}

// SendCommand enqueues cmd onto a running client instance
// (Instance::send_command). Servers have no command channel, so sending to
// one fails with ErrInvalidOperation.
func (in *Instance) SendCommand(cmd mbclient.Command) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.running {
		return ErrNotRunning
	}
	if in.Kind != KindTCPClient && in.Kind != KindRTUClient {
		return ErrInvalidOperation
	}
	if err := in.client.SendCommand(cmd); err != nil {
		return fmt.Errorf("instance: send command: %w", err)
	}
	return nil
}
