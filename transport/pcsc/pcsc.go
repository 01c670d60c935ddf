// Package pcsc implements the transport.Transport contract over a PC/SC-hosted
// ACR122 family reader: the PN53x frame's data is wrapped in a pseudo-APDU
// and the reply frame is rebuilt from the D5-prefixed response the
// reader's firmware returns (§6.2).
package pcsc

import (
	"fmt"
	"time"

	"github.com/ebfe/scard"

	"pn53x.dev/transport"
)

const (
	apduHeader  = 0xFF
	apduInsPN53x = 0x00
	getResponse = 0xC0

	// The reader replies D5, the PN53x reply code and its data, then 2
	// status-word bytes (SW1/SW2) the driver strips. envelopePrefixLen
	// counts the D5 and the reply code; only the D5 is dropped.
	envelopePrefixLen = 2
	statusWordLen     = 2
)

var ackFrame = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}

// Transport implements transport.Transport over github.com/ebfe/scard. PC/SC
// collapses the PN53x's request/ACK/reply dance into a single Transmit, so
// Send stages a synthesized ACK followed by the decoded reply frame for
// the engine's two subsequent Receive calls to drain in order.
type Transport struct {
	ctx     *scard.Context
	card    *scard.Card
	pending [][]byte
}

// Open connects to the named PC/SC reader (as scard.ListReaders reports
// it), e.g. "ACS ACR122U 00 00".
func Open(reader string) (*Transport, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}
	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: connect %q: %w", reader, err)
	}
	return &Transport{ctx: ctx, card: card}, nil
}

// Send wraps the data of frame (the bytes after its D4 TFI) in the
// FF 00 00 00 LEN+1 D4 data… pseudo-APDU, transmits it (following any
// 61xx GET-RESPONSE chain), strips the leading D5 and SW1/SW2, and stages
// an ACK followed by the decoded reply frame for Receive.
func (t *Transport) Send(frame []byte) error {
	data := frame
	switch {
	case len(frame) >= 11 && frame[3] == 0xFF && frame[4] == 0xFF:
		data = frame[9 : len(frame)-2] // extended frame
	case len(frame) >= 8:
		data = frame[6 : len(frame)-2] // normal frame
	}
	apdu := []byte{apduHeader, apduInsPN53x, 0x00, 0x00, byte(len(data) + 1), 0xD4}
	apdu = append(apdu, data...)
	resp, err := t.card.Transmit(apdu)
	if err != nil {
		return fmt.Errorf("pcsc: transmit: %w", err)
	}
	for len(resp) >= 2 && resp[len(resp)-2] == 0x61 {
		more := resp[len(resp)-1]
		resp, err = t.card.Transmit([]byte{apduHeader, getResponse, 0x00, 0x00, more})
		if err != nil {
			return fmt.Errorf("pcsc: get response: %w", err)
		}
	}
	if len(resp) < statusWordLen+envelopePrefixLen {
		return fmt.Errorf("pcsc: reply too short to contain an envelope")
	}
	body := resp[:len(resp)-statusWordLen]
	if len(body) < envelopePrefixLen || body[0] != 0xD5 {
		return fmt.Errorf("pcsc: reply missing D5 envelope")
	}
	replyData := body[1:]
	replyFrame := buildReplyFrame(replyData)
	t.pending = append(t.pending, ackFrame, replyFrame)
	return nil
}

func buildReplyFrame(data []byte) []byte {
	const chipTFI = 0xD5
	length := len(data) + 1
	frame := []byte{0x00, 0x00, 0xFF, byte(length), byte(0x100 - length), chipTFI}
	frame = append(frame, data...)
	sum := chipTFI
	for _, b := range data {
		sum += int(b)
	}
	frame = append(frame, byte((0x100-sum%0x100)%0x100), 0x00)
	return frame
}

// Receive drains the frames Send staged: first the synthesized ACK, then
// the decoded reply frame.
func (t *Transport) Receive(deadline time.Time) ([]byte, error) {
	if len(t.pending) == 0 {
		return nil, fmt.Errorf("pcsc: receive: %w", transport.ErrTimeout)
	}
	frame := t.pending[0]
	t.pending = t.pending[1:]
	return frame, nil
}

// Wakeup is a no-op: PC/SC readers never expose a PN53x in LOWVBAT.
func (t *Transport) Wakeup() error { return nil }

// Abort is documented as unsupported: SCardTransmit blocks until the
// reader completes and cannot be interrupted from another goroutine.
func (t *Transport) Abort() {}

func (t *Transport) Close() error {
	t.card.Disconnect(scard.LeaveCard)
	return t.ctx.Release()
}
