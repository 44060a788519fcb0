package mbclient

import (
	"context"
	"fmt"
	"time"

	mb "github.com/goburrow/modbus"

	"modbus-core/internal/mbmem"
	"modbus-core/internal/mbproto"
	"modbus-core/internal/sinks"
	"modbus-core/internal/transport"
)

// NewTCP builds a Client dialing a Modbus TCP peer (spec.md §1, §9's
// net.* config knobs), grounded on the teacher's Collector.newHandler "tcp"
// branch.
func NewTCP(endpoint string, tp transport.TCPParams, cfg NetConfig, mem *mbmem.Memory, log sinks.LogFunc, status sinks.StatusFunc) *Client {
	tp = tp.WithDefaults()
	cfg = cfg.WithDefaults()
	h := mb.NewTCPClientHandler(tp.Address)
	h.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &Client{
		Endpoint: endpoint,
		Memory:   mem,
		Log:      log,
		Status:   status,
		config:   cfg,
		handler:  h,
		address:  tp.Address,
		commands: sinks.NewCommandChannel[Command](commandDepth),
	}
}

// NewRTU builds a Client speaking Modbus RTU over a serial line, grounded on
// the teacher's Collector.newHandler "rtu" branch.
func NewRTU(endpoint string, sp transport.SerialParams, cfg NetConfig, mem *mbmem.Memory, log sinks.LogFunc, status sinks.StatusFunc) *Client {
	sp = sp.WithDefaults()
	cfg = cfg.WithDefaults()
	h := mb.NewRTUClientHandler(sp.Address)
	h.BaudRate = sp.BaudRate
	h.DataBits = sp.DataBits
	h.StopBits = sp.StopBits
	h.Parity = sp.Parity
	h.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &Client{
		Endpoint: endpoint,
		Memory:   mem,
		Log:      log,
		Status:   status,
		config:   cfg,
		handler:  h,
		address:  sp.Address,
		commands: sinks.NewCommandChannel[Command](commandDepth),
	}
}

// SetOperations replaces the polled operation list. Safe to call while the
// engine is running; the next tick observes the new list and clamps its
// rotation index if it fell out of bounds (spec.md §3's Operation note).
func (c *Client) SetOperations(ops []Operation) {
	c.opsMu.Lock()
	defer c.opsMu.Unlock()
	c.operations = ops
	if c.index >= len(ops) {
		c.index = 0
	}
}

// SendCommand enqueues cmd for the next tick, failing with
// sinks.ErrSendFailed if the channel is at capacity (spec.md §7).
func (c *Client) SendCommand(cmd Command) error {
	return c.commands.TrySend(cmd)
}

func (c *Client) snapshotOperation() (Operation, bool) {
	c.opsMu.RLock()
	defer c.opsMu.RUnlock()
	if len(c.operations) == 0 {
		return Operation{}, false
	}
	if c.index >= len(c.operations) {
		c.index = 0
	}
	return c.operations[c.index], true
}

func (c *Client) advance() {
	c.opsMu.Lock()
	defer c.opsMu.Unlock()
	n := len(c.operations)
	if n == 0 {
		return
	}
	c.index = (c.index + 1) % n
	c.retries = 0
}

// Run is the cooperative polling loop (spec.md §4.3). It blocks until ctx is
// cancelled, a Terminate command is processed, or the retry budget is
// exhausted — in the last case it returns ErrTimedOut.
func (c *Client) Run(ctx context.Context) error {
	if err := c.handler.Connect(); err != nil {
		return fmt.Errorf("mbclient: connect %s: %w", c.address, err)
	}
	defer c.handler.Close()
	c.client = mb.NewClient(c.handler)

	sinks.Logf(c.Log, "modbus %s connected", c.address)
	if c.Status != nil {
		c.Status("connected")
	}

	select {
	case <-time.After(time.Duration(c.config.DelayAfterConnectMs) * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.intervalElapsed() {
			if err := c.pollOnce(); err != nil {
				return err
			}
		}

		for _, cmd := range c.commands.Drain() {
			if done, err := c.handleCommand(cmd); done {
				return err
			}
		}

		select {
		case <-time.After(pollQuantum):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) intervalElapsed() bool {
	now := time.Now()
	if c.lastPollTime == nil {
		c.lastPollTime = &now
		return true
	}
	if now.Sub(*c.lastPollTime) >= time.Duration(c.config.IntervalMs)*time.Millisecond {
		c.lastPollTime = &now
		return true
	}
	return false
}

func (c *Client) pollOnce() error {
	op, ok := c.snapshotOperation()
	if !ok {
		return nil
	}

	values, err := c.readOperation(op)
	if err != nil {
		c.retries++
		sinks.Logf(c.Log, "modbus %s read [%d,%d) slave %d failed: %v", c.address, op.Range.Start, op.Range.End, op.SlaveID, err)
		if c.retries > retryBudget {
			sinks.Logf(c.Log, "modbus %s exceeded retry budget, terminating", c.address)
			return ErrTimedOut
		}
		return nil
	}

	sinks.Logf(c.Log, "modbus %s read [%d,%d) slave %d ok", c.address, op.Range.Start, op.Range.End, op.SlaveID)

	key := mbmem.Key{Endpoint: c.Endpoint, Slave: op.SlaveID, Table: tableFor(op.Func)}
	c.Memory.Write(key, tableFor(op.Func), op.Range, values)
	c.advance()
	return nil
}

func tableFor(f mbproto.FunctionCode) mbmem.CellType {
	if f.IsCoilTable() {
		return mbmem.Coil
	}
	return mbmem.Register
}

func (c *Client) readOperation(op Operation) ([]uint16, error) {
	setSlave(c.handler, op.SlaveID)
	qty := uint16(op.Range.Length())
	addr := uint16(op.Range.Start)

	switch op.Func {
	case mbproto.ReadCoils:
		raw, err := c.client.ReadCoils(addr, qty)
		if err != nil {
			return nil, err
		}
		return mbproto.BitsToRegisters(mbproto.DecodeBits(raw, int(qty))), nil
	case mbproto.ReadDiscreteInputs:
		raw, err := c.client.ReadDiscreteInputs(addr, qty)
		if err != nil {
			return nil, err
		}
		return mbproto.BitsToRegisters(mbproto.DecodeBits(raw, int(qty))), nil
	case mbproto.ReadHoldingRegisters:
		raw, err := c.client.ReadHoldingRegisters(addr, qty)
		if err != nil {
			return nil, err
		}
		return bytesToRegs(raw), nil
	case mbproto.ReadInputRegisters:
		raw, err := c.client.ReadInputRegisters(addr, qty)
		if err != nil {
			return nil, err
		}
		return bytesToRegs(raw), nil
	default:
		return nil, fmt.Errorf("mbclient: unsupported operation function %s", op.Func)
	}
}

func (c *Client) handleCommand(cmd Command) (done bool, err error) {
	switch v := cmd.(type) {
	case TerminateCommand:
		sinks.Logf(c.Log, "modbus %s terminate command received", c.address)
		return true, nil
	case WriteSingleCoilCommand:
		setSlave(c.handler, v.Slave)
		val := uint16(0)
		if v.Value {
			val = 0xFF00
		}
		_, err := c.client.WriteSingleCoil(v.Addr, val)
		return c.reportWrite(err)
	case WriteMultipleCoilsCommand:
		setSlave(c.handler, v.Slave)
		packed := packBits(v.Value)
		_, err := c.client.WriteMultipleCoils(v.Addr, uint16(len(v.Value)), packed)
		return c.reportWrite(err)
	case WriteSingleRegisterCommand:
		setSlave(c.handler, v.Slave)
		_, err := c.client.WriteSingleRegister(v.Addr, v.Value)
		return c.reportWrite(err)
	case WriteMultipleRegistersCommand:
		setSlave(c.handler, v.Slave)
		_, err := c.client.WriteMultipleRegisters(v.Addr, uint16(len(v.Value)), regsToBytes(v.Value))
		return c.reportWrite(err)
	default:
		return false, nil
	}
}

func (c *Client) reportWrite(err error) (bool, error) {
	if err != nil {
		sinks.Logf(c.Log, "modbus %s write command failed: %v", c.address, err)
		return true, ErrTimedOut
	}
	sinks.Logf(c.Log, "modbus %s write command ok", c.address)
	return false, nil
}

// setSlave applies the per-request slave id the way the teacher's collector
// does (handler.SlaveId), tolerating handlers that don't expose the field
// under the same name by falling back to a type switch over the two
// concrete goburrow/modbus handler types.
func setSlave(h handlerWithConn, slave uint8) {
	switch v := h.(type) {
	case *mb.TCPClientHandler:
		v.SlaveId = slave
	case *mb.RTUClientHandler:
		v.SlaveId = slave
	}
}

func bytesToRegs(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[i*2])<<8 | uint16(b[i*2+1])
	}
	return out
}

func regsToBytes(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, v := range regs {
		out[i*2] = byte(v >> 8)
		out[i*2+1] = byte(v)
	}
	return out
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
