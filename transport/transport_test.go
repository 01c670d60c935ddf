package transport

import "testing"

func TestExtractFrameLiterals(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want int
	}{
		{"ack", []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}, 6},
		{"nack", []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}, 6},
		{"error", []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}, 8},
	}
	for _, c := range cases {
		frame, ok := ExtractFrame(c.buf)
		if !ok {
			t.Fatalf("%s: not recognized", c.name)
		}
		if len(frame) != c.want {
			t.Fatalf("%s: len = %d, want %d", c.name, len(frame), c.want)
		}
	}
}

func TestExtractFrameNormalReply(t *testing.T) {
	data := []byte{0xD5, 0x03, 0x32, 0x01, 0x06, 0x07}
	frame := []byte{0x00, 0x00, 0xFF, byte(len(data) - 1 + 1), 0x00}
	frame[4] = byte(0x100 - int(frame[3]))
	frame = append(frame, data...)
	frame = append(frame, 0x00, 0x00) // dcs + postamble, not checked by ExtractFrame
	frame2, ok := ExtractFrame(frame)
	if !ok {
		t.Fatal("normal reply frame not recognized")
	}
	if len(frame2) != len(frame) {
		t.Fatalf("len = %d, want %d", len(frame2), len(frame))
	}
}

func TestExtractFrameIncomplete(t *testing.T) {
	_, ok := ExtractFrame([]byte{0x00, 0x00, 0xFF, 0x09, 0xF7, 0xD5, 0x01})
	if ok {
		t.Fatal("incomplete frame falsely recognized as complete")
	}
}

func TestExtractFrameExtended(t *testing.T) {
	data := make([]byte, 300)
	length := len(data) + 1
	frame := []byte{0x00, 0x00, 0xFF, 0xFF, 0xFF, byte(length >> 8), byte(length & 0xFF), 0x00, 0xD5}
	frame = append(frame, data...)
	frame = append(frame, 0x00, 0x00)
	frame2, ok := ExtractFrame(frame)
	if !ok {
		t.Fatal("extended frame not recognized")
	}
	if len(frame2) != len(frame) {
		t.Fatalf("len = %d, want %d", len(frame2), len(frame))
	}
}
