package mbserver

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"modbus-core/internal/sinks"
)

// crc16 computes the Modbus RTU CRC over data, following the standard
// reflected polynomial 0xA001 algorithm (grounded on
// rolfl-modbus/helpers.go's computeCRC16; no server-side RTU framing helper
// exists in goburrow/modbus, which only implements the client side).
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, d := range data {
		crc ^= uint16(d)
		for b := 0; b < 8; b++ {
			if crc&0x1 == 1 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// RTUServer dispatches framed requests read off a serial-style
// io.ReadWriteCloser. There is no length-prefixed header to rely on (unlike
// the TCP server's MBAP header), so Run treats the bytes buffered so far as
// one complete ADU when a read returns zero bytes (the port's own read
// timeout expiring) or fails.
type RTUServer struct {
	Dispatcher *Dispatcher
	Port       io.ReadWriteCloser

	// FrameSilence is defaulted to 4ms by Run (roughly 3.5 character times
	// at 9600 8N1, rounded up) but is not applied to the port: frame
	// boundaries come only from zero-length or failed reads.
	FrameSilence time.Duration

	mu      sync.Mutex
	quit    chan struct{}
	running bool
}

// Run reads ADUs until Close is called or the port returns an error. It
// blocks, so callers run it in its own goroutine.
func (s *RTUServer) Run() error {
	s.mu.Lock()
	s.quit = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	silence := s.FrameSilence
	if silence <= 0 {
		silence = 4 * time.Millisecond
	}

	buf := make([]byte, 0, 256)
	chunk := make([]byte, 256)
	for {
		select {
		case <-s.quit:
			return nil
		default:
		}

		n, err := s.Port.Read(chunk)
		if err != nil {
			if len(buf) > 0 {
				s.dispatchFrame(buf)
				buf = buf[:0]
			}
			return err
		}
		if n == 0 {
			if len(buf) > 0 {
				s.dispatchFrame(buf)
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, chunk[:n]...)
	}
}

// dispatchFrame validates the trailing CRC16, dispatches the enclosed PDU,
// and writes back a CRC-framed response ADU.
func (s *RTUServer) dispatchFrame(frame []byte) {
	if len(frame) < 4 {
		sinks.Logf(s.Dispatcher.Log, "mbserver %s: rtu frame too short (%d bytes)", s.Dispatcher.Endpoint, len(frame))
		return
	}

	body := frame[:len(frame)-2]
	want := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	if crc16(body) != want {
		sinks.Logf(s.Dispatcher.Log, "mbserver %s: rtu CRC mismatch, dropping frame", s.Dispatcher.Endpoint)
		return
	}

	slave := body[0]
	pdu := body[1:]
	response := s.Dispatcher.Dispatch(slave, pdu)
	if len(response) == 0 {
		return
	}

	adu := append([]byte{slave}, response...)
	crc := crc16(adu)
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	adu = append(adu, crcBytes...)

	if _, err := s.Port.Write(adu); err != nil {
		sinks.Logf(s.Dispatcher.Log, "mbserver %s: rtu write error: %v", s.Dispatcher.Endpoint, err)
	}
}

// Close stops Run and closes the underlying port.
func (s *RTUServer) Close() error {
	s.mu.Lock()
	if s.running {
		close(s.quit)
		s.running = false
	}
	s.mu.Unlock()
	return s.Port.Close()
}
