package pn53x

import (
	"fmt"
	"log"
	"time"

	"pn53x.dev/transport"
)

// Engine drives one PN53x chip over a Transport. It owns the register
// writeback cache, tracks firmware capabilities and power mode, and
// exposes the transceive primitive every higher-level operation is built
// from. An Engine is not safe for concurrent use.
type Engine struct {
	transport transport.Transport
	logger    *log.Logger

	caps  Capabilities
	power PowerMode
	wb    *writeback

	lastCommand Opcode
	// LastError is the chip-level status byte (low six bits) from the
	// most recent status-bearing command's reply, or 0 (SUCCESS).
	LastError byte

	timeout time.Duration
}

// New creates an Engine bound to transport. Open must be called before any
// other operation; it performs the initial GetFirmwareVersion handshake
// that determines chip capabilities.
func New(tr transport.Transport, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "pn53x: ", log.LstdFlags)
	}
	return &Engine{
		transport: tr,
		logger:    logger,
		wb:        newWriteback(),
		power:     PowerLowVbat, // conservative default; harmless on chips that never see it
		timeout:   1 * time.Second,
	}
}

// Capabilities returns the capability set detected during Open.
func (e *Engine) Capabilities() Capabilities { return e.caps }

// SetTimeout overrides the default per-command transceive timeout; a zero
// timeout waits without limit.
func (e *Engine) SetTimeout(d time.Duration) { e.timeout = d }

// Open wakes the chip if necessary and performs GetFirmwareVersion to fill
// in e.caps, per §4.5/§4.6.
func (e *Engine) Open() error {
	if err := e.wakeupIfNeeded(); err != nil {
		return fmt.Errorf("pn53x: open: %w", err)
	}
	reply, err := e.Transceive([]byte{byte(GetFirmwareVersion)}, 16)
	if err != nil {
		return fmt.Errorf("pn53x: open: get firmware version: %w", err)
	}
	caps, err := DetectCapabilities(reply[1:])
	if err != nil {
		return fmt.Errorf("pn53x: open: %w", err)
	}
	e.caps = caps
	e.logger.Printf("detected chip %s (fw %d.%d)", caps.Chip, caps.FirmwareVersion, caps.FirmwareRev)
	return nil
}

func (e *Engine) wakeupIfNeeded() error {
	if !e.power.needsWakeup() {
		return nil
	}
	if err := e.transport.Wakeup(); err != nil {
		return fmt.Errorf("wakeup: %w", err)
	}
	e.power = PowerNormal
	// SAMConfiguration(NORMAL=1, timeout=20*50ms, irq=1) completes the
	// LOWVBAT->NORMAL transition; failure here is fatal to Open per §4.5.
	if _, err := e.transceiveRaw([]byte{byte(SAMConfiguration), 0x01, 20, 0x01}, 16); err != nil {
		return fmt.Errorf("SAMConfiguration(NORMAL): %w", err)
	}
	return nil
}

// WriteRegister stages a masked register write through the writeback
// cache (§4.4). The write is not sent to the chip until the next
// Transceive flushes the cache.
func (e *Engine) WriteRegister(addr uint16, mask, value byte) {
	e.wb.Write(addr, mask, value)
}

// flushWriteback implements §4.4's flush_writeback, wiring the cache's
// generic read/write callbacks to this engine's wire-level commands.
func (e *Engine) flushWriteback() error {
	return e.wb.flush(e.readRegistersWire, e.writeRegistersWire)
}

func (e *Engine) readRegistersWire(addrs []uint16) ([]byte, error) {
	data := make([]byte, 1, 1+2*len(addrs))
	data[0] = byte(ReadRegisterOp)
	for _, a := range addrs {
		data = append(data, byte(a>>8), byte(a&0xFF))
	}
	reply, err := e.transceiveRaw(data, len(addrs)+8)
	if err != nil {
		return nil, fmt.Errorf("ReadRegister: %w", err)
	}
	body := reply[1:]
	if e.caps.RepliesCarryStatusPrefix && len(body) > 0 {
		body = body[1:]
	}
	if len(body) < len(addrs) {
		return nil, fmt.Errorf("ReadRegister: short reply: got %d bytes, want %d", len(body), len(addrs))
	}
	return body[:len(addrs)], nil
}

func (e *Engine) writeRegistersWire(addrs []uint16, values []byte) error {
	data := make([]byte, 1, 1+3*len(addrs))
	data[0] = byte(WriteRegisterOp)
	for i, a := range addrs {
		data = append(data, byte(a>>8), byte(a&0xFF), values[i])
	}
	_, err := e.transceiveRaw(data, 8)
	if err != nil {
		return fmt.Errorf("WriteRegister: %w", err)
	}
	return nil
}

// Transceive wakes the chip if its last known power mode requires it,
// flushes any pending register writes, then sends tx and returns the
// chip's reply data (opcode echo included), per §4.9. Every public
// command funnels through here, so a POWERDOWN/LOWVBAT mode recorded by
// a prior TgInitAsTarget or PowerDown is always woken before the next
// command reaches the chip, per §4.5.
func (e *Engine) Transceive(tx []byte, rxCapacity int) ([]byte, error) {
	if err := e.wakeupIfNeeded(); err != nil {
		return nil, fmt.Errorf("pn53x: transceive: %w", err)
	}
	// Once the chip is known (post-Open), reject opcodes its firmware
	// doesn't document, per §6.1's PN531/PN532/PN533 feature catalog.
	if len(tx) > 0 && e.caps.Chip != ChipUnknown {
		op := Opcode(tx[0])
		if _, documented := opcodeFeatures[op]; documented && !e.caps.Chip.Supports(op) {
			return nil, fmt.Errorf("pn53x: transceive: opcode %#x not supported by %s", op, e.caps.Chip)
		}
	}
	if err := e.flushWriteback(); err != nil {
		return nil, fmt.Errorf("pn53x: transceive: flush writeback: %w", err)
	}
	return e.transceiveRaw(tx, rxCapacity)
}

// NotePowerDown records that a successful PowerDown command has put the
// chip to sleep, so the next Transceive call wakes it first instead of
// sending directly into a sleeping chip.
func (e *Engine) NotePowerDown() {
	e.power = PowerDownMode
}

// transceiveRaw performs the wire-level request/ACK/reply dance without
// touching the writeback cache; wakeup's SAMConfiguration and the cache's
// own ReadRegister/WriteRegister batches use it directly so that they do
// not trigger a flush themselves.
func (e *Engine) transceiveRaw(tx []byte, rxCapacity int) ([]byte, error) {
	if len(tx) == 0 {
		return nil, fmt.Errorf("pn53x: transceive: empty command")
	}
	op := Opcode(tx[0])
	e.lastCommand = op

	frame, err := buildFrame(tx)
	if err != nil {
		return nil, fmt.Errorf("pn53x: transceive: %w", err)
	}
	if err := e.transport.Send(frame); err != nil {
		return nil, fmt.Errorf("pn53x: transceive: send: %w", err)
	}

	deadline := time.Now().Add(e.timeout)
	if e.timeout <= 0 {
		// No timeout: a deadline about 146 years away.
		deadline = time.Now().Add(1 << 62)
	}
	ack, err := e.transport.Receive(deadline)
	if err != nil {
		return nil, fmt.Errorf("pn53x: transceive: receive ack: %w", err)
	}
	if isErrorFrame(ack) {
		return nil, frameErrorf("chip reported a frame error")
	}
	if isNACKFrame(ack) {
		return nil, frameErrorf("chip sent NACK")
	}
	if !isACKFrame(ack) {
		return nil, frameErrorf("expected ACK, got % x", ack)
	}

	reply, err := e.transport.Receive(deadline)
	if err != nil {
		return nil, fmt.Errorf("pn53x: transceive: receive reply: %w", err)
	}
	_, data, err := parseFrame(reply)
	if err != nil {
		return nil, fmt.Errorf("pn53x: transceive: %w", err)
	}
	if len(data) == 0 {
		return nil, frameErrorf("empty reply to command %#x", op)
	}
	if Opcode(data[0]) != op+1 {
		return nil, frameErrorf("reply code %#x does not follow command %#x", data[0], op)
	}

	e.LastError = 0
	if hasEmbeddedStatus(op, e.caps.Chip) && len(data) > 1 {
		e.LastError = data[1] & 0x3F
	}
	return data, nil
}

// Abort requests that an in-flight transceive return promptly, per the
// cancellation model of §5.
func (e *Engine) Abort() { e.transport.Abort() }

// Close releases the underlying transport.
func (e *Engine) Close() error { return e.transport.Close() }
