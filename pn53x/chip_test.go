package pn53x

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"testing"
	"time"
)

// fakeTransport implements Transport against a scripted exchange: each
// Send is matched against the next expected request frame, and queues the
// configured reply frames (typically ACK then a reply frame) for
// subsequent Receive calls.
type fakeTransport struct {
	exchanges []exchange
	pos       int
	pending   [][]byte
	woken     bool
	aborted   bool
}

type exchange struct {
	wantTx  []byte
	replies [][]byte
}

func (f *fakeTransport) Send(frame []byte) error {
	if f.pos >= len(f.exchanges) {
		return fmt.Errorf("unexpected send: % x", frame)
	}
	ex := f.exchanges[f.pos]
	if ex.wantTx != nil && !bytes.Equal(frame, ex.wantTx) {
		return fmt.Errorf("send %d: got % x, want % x", f.pos, frame, ex.wantTx)
	}
	f.pending = append([][]byte{}, ex.replies...)
	f.pos++
	return nil
}

func (f *fakeTransport) Receive(deadline time.Time) ([]byte, error) {
	if len(f.pending) == 0 {
		return nil, io.EOF
	}
	reply := f.pending[0]
	f.pending = f.pending[1:]
	return reply, nil
}

func (f *fakeTransport) Wakeup() error { f.woken = true; return nil }
func (f *fakeTransport) Abort()        { f.aborted = true }
func (f *fakeTransport) Close() error  { return nil }

func replyFrame(t *testing.T, data []byte) []byte {
	t.Helper()
	sum := chipTFI
	for _, b := range data {
		sum += int(b)
	}
	dcs := byte((0x100 - sum%0x100) % 0x100)
	frame := []byte{0x00, 0x00, 0xFF, byte(len(data) + 1), byte(0x100 - (len(data) + 1)), chipTFI}
	frame = append(frame, data...)
	frame = append(frame, dcs, 0x00)
	return frame
}

func TestEngineOpenDetectsPN532(t *testing.T) {
	// Scenario 2: GetFirmwareVersion, PN532.
	ft := &fakeTransport{
		exchanges: []exchange{
			{
				wantTx: nil, // SAMConfiguration(NORMAL) after forced wakeup
				replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(SAMConfiguration) + 1})},
			},
			{
				wantTx:  nil,
				replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(GetFirmwareVersion) + 1, 0x32, 0x01, 0x06, 0x07})},
			},
		},
	}
	e := New(ft, log.New(io.Discard, "", 0))
	if err := e.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !ft.woken {
		t.Error("expected transport.Wakeup to be called for initial LOWVBAT state")
	}
	if e.Capabilities().Chip != ChipPN532 {
		t.Errorf("chip = %s, want PN532", e.Capabilities().Chip)
	}
	if e.Capabilities().ModulationMask != 0x07 {
		t.Errorf("modulation mask = %#02x, want 0x07", e.Capabilities().ModulationMask)
	}
}

func TestEngineOpenDetectsRCS360(t *testing.T) {
	ft := &fakeTransport{
		exchanges: []exchange{
			{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(SAMConfiguration) + 1})}},
			{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(GetFirmwareVersion) + 1, 0x33, 0x01, 0x00, 0x07})}},
		},
	}
	e := New(ft, log.New(io.Discard, "", 0))
	if err := e.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if e.Capabilities().Chip != ChipRCS360 {
		t.Errorf("chip = %s, want RC-S360", e.Capabilities().Chip)
	}
	if e.Capabilities().RepliesCarryStatusPrefix {
		t.Error("RC-S360 should not report status-prefixed register replies")
	}
}

func TestTransceiveRejectsNonACK(t *testing.T) {
	ft := &fakeTransport{
		exchanges: []exchange{
			{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(SAMConfiguration) + 1})}},
			{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(GetFirmwareVersion) + 1, 0x32, 0x01, 0x06, 0x07})}},
			{replies: [][]byte{nackFrame}},
		},
	}
	e := New(ft, log.New(io.Discard, "", 0))
	if err := e.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := e.Transceive([]byte{byte(Diagnose), 0x00}, 16); err == nil {
		t.Fatal("expected error on NACK instead of ACK")
	}
}

func TestEngineAbortCallsTransport(t *testing.T) {
	ft := &fakeTransport{}
	e := New(ft, log.New(io.Discard, "", 0))
	e.Abort()
	if !ft.aborted {
		t.Error("Abort did not reach transport")
	}
}
