package pn53x

import (
	"io"
	"log"
	"testing"
)

func openPN532(t *testing.T, extra ...exchange) (*Engine, *fakeTransport) {
	t.Helper()
	exchanges := []exchange{
		{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(SAMConfiguration) + 1})}},
		{replies: [][]byte{ackFrame, replyFrame(t, []byte{byte(GetFirmwareVersion) + 1, 0x32, 0x01, 0x06, 0x07})}},
	}
	exchanges = append(exchanges, extra...)
	ft := &fakeTransport{exchanges: exchanges}
	e := New(ft, log.New(io.Discard, "", 0))
	if err := e.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e, ft
}

func TestInListPassiveTargetDecodesISO14443A(t *testing.T) {
	// nbTg=1, Tg=1, ATQA=00 04, SAK=08, UID len=4, UID=01 02 03 04
	data := []byte{byte(InListPassiveTarget) + 1, 0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0x01, 0x02, 0x03, 0x04}
	e, _ := openPN532(t, exchange{replies: [][]byte{ackFrame, replyFrame(t, data)}})

	desc, tg, err := e.InListPassiveTarget(1, BrTy106A, nil)
	if err != nil {
		t.Fatalf("InListPassiveTarget: %v", err)
	}
	if tg != 1 {
		t.Errorf("tg = %d, want 1", tg)
	}
	uid := desc.UID()
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if len(uid) != len(want) {
		t.Fatalf("UID = % x, want % x", uid, want)
	}
	for i := range want {
		if uid[i] != want[i] {
			t.Fatalf("UID = % x, want % x", uid, want)
		}
	}
}

func TestInListPassiveTargetNoTargetFound(t *testing.T) {
	data := []byte{byte(InListPassiveTarget) + 1, 0x00}
	e, _ := openPN532(t, exchange{replies: [][]byte{ackFrame, replyFrame(t, data)}})

	if _, _, err := e.InListPassiveTarget(1, BrTy106A, nil); err == nil {
		t.Fatal("expected error when nbTg == 0")
	}
}

func TestInDataExchangeStripsStatusAndEcho(t *testing.T) {
	reqData := []byte{byte(InDataExchange) + 1, 0x00, 0xAA, 0xBB}
	e, _ := openPN532(t, exchange{replies: [][]byte{ackFrame, replyFrame(t, reqData)}})

	rx, err := e.InDataExchange(1, []byte{0x30, 0x04}, 16)
	if err != nil {
		t.Fatalf("InDataExchange: %v", err)
	}
	want := []byte{0xAA, 0xBB}
	if len(rx) != len(want) || rx[0] != want[0] || rx[1] != want[1] {
		t.Fatalf("rx = % x, want % x", rx, want)
	}
}

func TestInCommunicateThruDecodesISO14443B2SR(t *testing.T) {
	// prepareRawB stages partial-mask writes to TxMode, RxMode and
	// TxControl, so the first command flushes them as a read-modify-write:
	// one ReadRegister of the three addresses, then one WriteRegister.
	rmwReadReply := []byte{byte(ReadRegisterOp) + 1, 0x80, 0x80, 0x00}
	rmwWriteReply := []byte{byte(WriteRegisterOp) + 1}
	initiateReply := []byte{byte(InCommunicateThru) + 1, 0x00}
	selectReply := []byte{byte(InCommunicateThru) + 1, 0x00, 1, 2, 3, 4, 5, 6, 7, 8}
	e, _ := openPN532(t,
		exchange{replies: [][]byte{ackFrame, replyFrame(t, rmwReadReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, rmwWriteReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, initiateReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, selectReply)}},
	)

	desc, err := e.SelectISO14443B2SR()
	if err != nil {
		t.Fatalf("SelectISO14443B2SR: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got := desc.UID()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UID = % x, want % x", got, want)
		}
	}
}
