package pcsc

import (
	"bytes"
	"testing"
)

func TestBuildReplyFrameParsesAsValidFrame(t *testing.T) {
	data := []byte{0x03, 0x32, 0x01, 0x06, 0x07}
	frame := buildReplyFrame(data)

	if !bytes.HasPrefix(frame, []byte{0x00, 0x00, 0xFF}) {
		t.Fatalf("missing preamble: % x", frame)
	}
	if frame[len(frame)-1] != 0x00 {
		t.Fatalf("missing postamble: % x", frame)
	}
	length := int(frame[3])
	lcs := frame[4]
	if byte(0x100-length) != lcs {
		t.Fatalf("bad LCS: len=%#x lcs=%#x", length, lcs)
	}
	if frame[5] != 0xD5 {
		t.Fatalf("TFI = %#x, want 0xD5", frame[5])
	}
	gotData := frame[6 : 6+len(data)]
	if !bytes.Equal(gotData, data) {
		t.Fatalf("data = % x, want % x", gotData, data)
	}
}
