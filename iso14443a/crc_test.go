package iso14443a

import (
	"bytes"
	"testing"
)

func TestCRCSelfCheck(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x26},
		{0x93, 0x20},
		{0x4a, 0x00, 0x6b, 0x02, 0x26},
		bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 17),
	}
	for _, payload := range payloads {
		framed := AppendCRC(append([]byte{}, payload...))
		if Residue(framed) != 0 {
			t.Errorf("payload %x: residue = %#04x, want 0", payload, Residue(framed))
		}
		if !CheckCRC(framed) {
			t.Errorf("payload %x: CheckCRC failed on its own CRC", payload)
		}
	}
}

func TestCRCDetectsCorruption(t *testing.T) {
	framed := AppendCRC([]byte{0x4a, 0x00, 0x6b, 0x02, 0x26})
	framed[0] ^= 0x01
	if CheckCRC(framed) {
		t.Error("CheckCRC accepted a corrupted frame")
	}
}
