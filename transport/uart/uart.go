// Package uart implements the transport.Transport contract over a serial port,
// for the PN532 and the Arygon/ACR122S UART-attached readers (§6.2).
// Abort is built on the POSIX self-pipe in transport/internal/selfpipe;
// the package has no Windows build.
package uart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tarm/serial"

	"pn53x.dev/transport"
	"pn53x.dev/transport/internal/selfpipe"
)

// Variant distinguishes the small wire differences between UART-attached
// readers: the Arygon family prepends a one-byte TAMA-mode protocol
// selector to every host frame.
type Variant int

const (
	VariantPN532 Variant = iota
	VariantArygon
	VariantACR122S
)

// DefaultBaud returns the recommended initial baud rate for v, per §6.2.
func DefaultBaud(v Variant) int {
	switch v {
	case VariantPN532:
		return 115200
	default:
		return 9600
	}
}

const arygonPrefix = '2'

// wakeupPrefix is sent once before the first frame to pull a PN532 out of
// LOWVBAT, per §6.2/§4.5.
var wakeupPrefix = []byte{0x55, 0x55, 0x00, 0x00, 0x00}

// Transport implements transport.Transport over github.com/tarm/serial.
type Transport struct {
	port    *serial.Port
	variant Variant

	abortPipe *selfpipe.Pipe
	buf       bytes.Buffer
	scratch   [256]byte
}

// Open opens dev at baud (0 selects DefaultBaud(variant)) and readies it
// for pn53x traffic.
func Open(dev string, baud int, variant Variant) (*Transport, error) {
	if baud == 0 {
		baud = DefaultBaud(variant)
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        dev,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", dev, err)
	}
	pipe, err := selfpipe.New()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: %w", err)
	}
	return &Transport{port: port, variant: variant, abortPipe: pipe}, nil
}

func (t *Transport) Send(frame []byte) error {
	if t.variant == VariantArygon {
		framed := make([]byte, 0, len(frame)+1)
		framed = append(framed, arygonPrefix)
		framed = append(framed, frame...)
		frame = framed
	}
	_, err := t.port.Write(frame)
	if err != nil {
		return fmt.Errorf("uart: write: %w", err)
	}
	return nil
}

// Receive reads until one complete PN53x frame (ACK, NACK, error, or a
// normal/extended reply frame) has accumulated, polling the serial port's
// read timeout so the abort self-pipe can be observed between reads.
func (t *Transport) Receive(deadline time.Time) ([]byte, error) {
	for {
		if frame, ok := transport.ExtractFrame(t.buf.Bytes()); ok {
			t.buf.Next(len(frame))
			return frame, nil
		}
		if t.abortPipe.Triggered() {
			return nil, fmt.Errorf("uart: receive: %w", transport.ErrAborted)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("uart: receive: %w", transport.ErrTimeout)
		}
		n, err := t.port.Read(t.scratch[:])
		if err != nil {
			// tarm/serial returns an error on its own read timeout; treat
			// it as "nothing yet" so the abort/deadline checks above run
			// again, unless the port itself has gone away.
			if n == 0 {
				continue
			}
			return nil, fmt.Errorf("uart: read: %w", err)
		}
		t.buf.Write(t.scratch[:n])
	}
}

// Wakeup sends the PN532 LOWVBAT wakeup preamble. It is a no-op-safe
// prefix for variants that don't need it; the chip simply ignores it if
// it wasn't asleep.
func (t *Transport) Wakeup() error {
	if _, err := t.port.Write(wakeupPrefix); err != nil {
		return fmt.Errorf("uart: wakeup: %w", err)
	}
	return nil
}

func (t *Transport) Abort() { t.abortPipe.Trigger() }

func (t *Transport) Close() error {
	t.abortPipe.Close()
	return t.port.Close()
}
