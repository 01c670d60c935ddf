package pn53x

import "testing"

func TestTransceiveBitsStripsTrailingBits(t *testing.T) {
	// WriteRegister(mask=0x07) is a partial-byte write, so flushing it
	// performs a read-modify-write: a ReadRegister to learn the bits the
	// write doesn't own, then the merged WriteRegister, per the §4.4
	// writeback cache this shares with every other register access.
	rmwReadReply := []byte{byte(ReadRegisterOp) + 1, 0x00}
	rmwWriteReply := []byte{byte(WriteRegisterOp) + 1}
	comThruReply := []byte{byte(InCommunicateThru) + 1, 0x00, 0xAB, 0xC0}
	readRegReply := []byte{byte(ReadRegisterOp) + 1, 0x04}

	e, _ := openPN532(t,
		exchange{replies: [][]byte{ackFrame, replyFrame(t, rmwReadReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, rmwWriteReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, comThruReply)}},
		exchange{replies: [][]byte{ackFrame, replyFrame(t, readRegReply)}},
	)

	rx, rxBits, err := e.TransceiveBits([]byte{0x26}, 7, 16)
	if err != nil {
		t.Fatalf("TransceiveBits: %v", err)
	}
	want := []byte{0xAB, 0xC0}
	if len(rx) != len(want) || rx[0] != want[0] || rx[1] != want[1] {
		t.Fatalf("rx = % x, want % x", rx, want)
	}
	if wantBits := 2*8 - (8 - 4); rxBits != wantBits {
		t.Fatalf("rxBits = %d, want %d", rxBits, wantBits)
	}
}

func TestInitiatorInitSecureElementSendsSAMConfiguration(t *testing.T) {
	wantFrame, err := buildFrame([]byte{byte(SAMConfiguration), SEModeVirtualCard})
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}
	reply := []byte{byte(SAMConfiguration) + 1}
	e, ft := openPN532(t, exchange{
		wantTx:  wantFrame,
		replies: [][]byte{ackFrame, replyFrame(t, reply)},
	})

	if err := e.InitiatorInitSecureElement(SEModeVirtualCard); err != nil {
		t.Fatalf("InitiatorInitSecureElement: %v", err)
	}
	if ft.pos != 3 {
		t.Fatalf("exchanges consumed = %d, want 3", ft.pos)
	}
}
