// Package mbclient implements the client polling engine (spec.md §4.3): a
// cooperative loop that rotates through a configured Operation list, applies
// per-operation timeouts, maintains a retry budget, fuses fetched data back
// into Memory, and multiplexes command execution.
package mbclient

import (
	"errors"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"

	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbproto"
	"modbus-core/internal/mbrange"
	"modbus-core/internal/sinks"
)

// ErrTimedOut is the client task's terminal error: either a single request
// exceeded its deadline past the retry budget, or a write command timed out
// outright (spec.md §4.3, §7).
var ErrTimedOut = errors.New("mbclient: timed out")

const (
	retryBudget  = 3
	pollQuantum  = 50 * time.Millisecond
	commandDepth = 10
)

// Operation is the (slave-id, function-code, range) triple the Client polls
// on its rotation (spec.md §C6).
type Operation struct {
	SlaveID uint8
	Func    mbproto.FunctionCode
	Range   mbrange.Range
}

// Command is the union of actions a caller can enqueue onto a running
// Client (spec.md §C6's Command union).
type Command interface{ isCommand() }

type TerminateCommand struct{}

func (TerminateCommand) isCommand() {}

type WriteSingleCoilCommand struct {
	Slave uint8
	Addr  uint16
	Value bool
}

func (WriteSingleCoilCommand) isCommand() {}

type WriteMultipleCoilsCommand struct {
	Slave uint8
	Addr  uint16
	Value []bool
}

func (WriteMultipleCoilsCommand) isCommand() {}

type WriteSingleRegisterCommand struct {
	Slave uint8
	Addr  uint16
	Value uint16
}

func (WriteSingleRegisterCommand) isCommand() {}

type WriteMultipleRegistersCommand struct {
	Slave uint8
	Addr  uint16
	Value []uint16
}

func (WriteMultipleRegistersCommand) isCommand() {}

// NetConfig is the set of declarative knobs a Client's polling loop consumes
// (spec.md §C11, §9 defaults).
type NetConfig struct {
	IntervalMs          int
	DelayAfterConnectMs int
	TimeoutMs           int
}

// WithDefaults fills in spec.md §9's stated defaults for any zero field.
func (c NetConfig) WithDefaults() NetConfig {
	if c.IntervalMs <= 0 {
		c.IntervalMs = 500
	}
	if c.DelayAfterConnectMs <= 0 {
		c.DelayAfterConnectMs = 500
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = 3000
	}
	return c
}

// handlerWithConn is the subset of a goburrow/modbus client handler the
// engine needs for lifecycle management, mirroring the teacher's
// collector.handlerWithConn.
type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// Client is one running client endpoint: a rotating Operation list, a
// command channel, and the Memory it fuses poll results into.
type Client struct {
	Endpoint string
	Memory   *mbmem.Memory
	Log      sinks.LogFunc
	Status   sinks.StatusFunc

	config     NetConfig
	operations []Operation
	opsMu      sync.RWMutex

	handler handlerWithConn
	client  mb.Client
	address string

	commands *sinks.CommandChannel[Command]

	index        int
	retries      int
	lastPollTime *time.Time
}
