// Package spi implements the transport.Transport contract over the PN532's SPI
// interface (§6.2): mode 0, 1 MHz default, with a one-byte command prefix
// (data write / status read / data read) on every transaction.
package spi

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"pn53x.dev/transport"
)

const (
	cmdDataWrite = 0x01
	cmdStatusRead = 0x02
	cmdDataRead  = 0x03

	statusRDY = 0x01

	defaultSpeed = 1 * physic.MegaHertz
	statusPoll   = 10 * time.Millisecond
)

var wakeupPrefix = []byte{0x55, 0x55, 0x00, 0x00, 0x00}

// Transport implements transport.Transport over a periph.io SPI port, opened
// in mode 0 at defaultSpeed.
type Transport struct {
	conn    spi.Conn
	aborted chan struct{}
	scratch [260]byte
}

// Open opens the named (or default, if name == "") SPI port.
func Open(name string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spi: host init: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spi: open %q: %w", name, err)
	}
	conn, err := port.Connect(defaultSpeed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi: connect: %w", err)
	}
	return &Transport{conn: conn, aborted: make(chan struct{}, 1)}, nil
}

func (t *Transport) Send(frame []byte) error {
	tx := t.scratch[:1+len(frame)]
	tx[0] = cmdDataWrite
	copy(tx[1:], frame)
	if err := t.conn.Tx(tx, nil); err != nil {
		return fmt.Errorf("spi: write: %w", err)
	}
	return nil
}

func (t *Transport) statusReady() (bool, error) {
	tx := [2]byte{cmdStatusRead, 0x00}
	var rx [2]byte
	if err := t.conn.Tx(tx[:], rx[:]); err != nil {
		return false, fmt.Errorf("spi: status: %w", err)
	}
	return rx[1]&statusRDY != 0, nil
}

// Receive polls the status byte until RDY, then reads one frame.
func (t *Transport) Receive(deadline time.Time) ([]byte, error) {
	for {
		select {
		case <-t.aborted:
			return nil, fmt.Errorf("spi: receive: %w", transport.ErrAborted)
		default:
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("spi: receive: %w", transport.ErrTimeout)
		}
		ready, err := t.statusReady()
		if err != nil {
			return nil, err
		}
		if ready {
			break
		}
		time.Sleep(statusPoll)
	}
	tx := t.scratch[:]
	tx[0] = cmdDataRead
	rx := make([]byte, len(tx))
	if err := t.conn.Tx(tx, rx); err != nil {
		return nil, fmt.Errorf("spi: read: %w", err)
	}
	body := rx[1:]
	frame, ok := transport.ExtractFrame(body)
	if !ok {
		return nil, fmt.Errorf("spi: receive: incomplete frame in read")
	}
	return frame, nil
}

func (t *Transport) Wakeup() error {
	tx := append([]byte{cmdDataWrite}, wakeupPrefix...)
	if err := t.conn.Tx(tx, nil); err != nil {
		return fmt.Errorf("spi: wakeup: %w", err)
	}
	return nil
}

func (t *Transport) Abort() {
	select {
	case t.aborted <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error { return nil }
