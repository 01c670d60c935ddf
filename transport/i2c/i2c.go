// Package i2c implements the transport.Transport contract over the PN532's I2C
// interface (§6.2): fixed 7-bit address 0x24, reply-ready signaled by the
// low bit of the first byte read back.
package i2c

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"pn53x.dev/transport"
)

// Address is the PN532's fixed 7-bit I2C address.
const Address = 0x24

// rdyPoll is how often the driver polls for reply availability, per §6.2.
const rdyPoll = 90 * time.Millisecond

var wakeupPrefix = []byte{0x55, 0x55, 0x00, 0x00, 0x00}

// Transport implements transport.Transport over a periph.io I2C bus.
type Transport struct {
	dev     *i2c.Dev
	aborted chan struct{}
	scratch [256]byte
}

// Open opens the named (or default, if name == "") I2C bus and binds the
// PN532's fixed address.
func Open(name string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %q: %w", name, err)
	}
	return &Transport{
		dev:     &i2c.Dev{Bus: bus, Addr: Address},
		aborted: make(chan struct{}, 1),
	}, nil
}

func (t *Transport) Send(frame []byte) error {
	if err := t.dev.Tx(frame, nil); err != nil {
		return fmt.Errorf("i2c: write: %w", err)
	}
	return nil
}

// Receive polls the RDY bit every rdyPoll until the chip reports data
// ready, then reads one frame. The PN532 I2C protocol prefixes every read
// with a status byte whose bit 0 is RDY; actual frame bytes follow it.
func (t *Transport) Receive(deadline time.Time) ([]byte, error) {
	for {
		select {
		case <-t.aborted:
			return nil, fmt.Errorf("i2c: receive: %w", transport.ErrAborted)
		default:
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("i2c: receive: %w", transport.ErrTimeout)
		}
		status := t.scratch[:1]
		if err := t.dev.Tx(nil, status); err != nil {
			return nil, fmt.Errorf("i2c: poll status: %w", err)
		}
		if status[0]&0x01 == 0 {
			time.Sleep(rdyPoll)
			continue
		}
		break
	}
	buf := t.scratch[:]
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("i2c: read: %w", err)
	}
	// buf[0] is the RDY status byte the PN532 repeats at the head of a
	// data read; the frame itself starts at buf[1].
	body := buf[1:]
	frame, ok := transport.ExtractFrame(body)
	if !ok {
		return nil, fmt.Errorf("i2c: receive: incomplete frame in read")
	}
	return frame, nil
}

func (t *Transport) Wakeup() error {
	if err := t.dev.Tx(wakeupPrefix, nil); err != nil {
		return fmt.Errorf("i2c: wakeup: %w", err)
	}
	return nil
}

// Abort signals the polling Receive loop to give up on its next tick.
// I2C has no interrupt-driven wait to break out of here, so this is a
// cooperative flag rather than a true bus-level interrupt.
func (t *Transport) Abort() {
	select {
	case t.aborted <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error { return nil }
