package iso14443a

import (
	"bytes"
	"testing"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	cases := []struct {
		data    []byte
		parity  []byte
	}{
		{[]byte{0x26}, []byte{1}},
		{[]byte{0x26, 0x93}, []byte{1, 0}},
		{[]byte{0x00, 0xff, 0x55, 0xaa}, []byte{0, 1, 1, 0}},
		{[]byte{}, []byte{}},
	}
	for _, c := range cases {
		frame := WrapFrame(c.data, c.parity)
		frameBits := len(c.data) * 9
		gotData, gotParity := UnwrapFrame(frame, frameBits)
		if !bytes.Equal(gotData, c.data) {
			t.Errorf("data %x: got %x after round-trip", c.data, gotData)
		}
		if !bytes.Equal(gotParity, c.parity) {
			t.Errorf("data %x: parity %v, want %v", c.data, gotParity, c.parity)
		}
	}
}

func TestMirrorInvolution(t *testing.T) {
	for x := 0; x < 256; x++ {
		if got := mirror(mirror(byte(x))); got != byte(x) {
			t.Fatalf("mirror(mirror(%#02x)) = %#02x", x, got)
		}
	}
}
