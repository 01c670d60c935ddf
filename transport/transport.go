// Package transport defines the narrow contract the pn53x command engine
// drives physical buses through (§9's transport-selection design note),
// plus framing helpers shared by the per-bus implementations in this
// package's subdirectories.
package transport

import (
	"errors"
	"time"
)

// ErrAborted is returned by Receive when Abort interrupted it.
var ErrAborted = errors.New("transport: operation aborted")

// ErrTimeout is returned by Receive when the deadline passed with no
// complete frame accumulated.
var ErrTimeout = errors.New("transport: operation timed out")

// Transport is the narrow contract a physical bus implementation provides
// to the command engine. Send transmits one already-framed PN53x message.
// Receive blocks (honoring deadline) until at least one framed message —
// an ACK, a NACK, an error frame, or a reply — has been read back, and
// returns it verbatim.
//
// Implementations are not required to be safe for concurrent use, except
// that Abort may always be called from any goroutine.
type Transport interface {
	Send(frame []byte) error
	Receive(deadline time.Time) ([]byte, error)
	// Wakeup is called before a Send whenever the engine's recorded power
	// mode is LOWVBAT or POWERDOWN: once during Open, and again after a
	// recorded power-down. It is a no-op for transports that never see
	// those states (USB, PC/SC).
	Wakeup() error
	// Abort requests that an in-flight Receive return promptly with
	// ErrAborted. Implementations that cannot interrupt a blocked Receive
	// (PC/SC) may make this a no-op; callers are told so in package docs.
	Abort()
	Close() error
}

// ExtractFrame looks for one complete PN53x frame (ACK/NACK/error literal,
// or a normal/extended reply frame with a verified length header) at the
// start of buf. It returns the frame and true if one is present, without
// validating checksums — that is the command engine's job once the frame
// reaches it.
func ExtractFrame(buf []byte) (frame []byte, ok bool) {
	if len(buf) < 6 || buf[0] != 0x00 || buf[1] != 0x00 || buf[2] != 0xFF {
		return nil, false
	}
	switch {
	case len(buf) >= 6 && buf[3] == 0x00 && buf[4] == 0xFF && buf[5] == 0x00:
		return buf[:6], true // ACK
	case len(buf) >= 6 && buf[3] == 0xFF && buf[4] == 0x00 && buf[5] == 0x00:
		return buf[:6], true // NACK
	case len(buf) >= 8 && buf[3] == 0x01 && buf[4] == 0xFF && buf[5] == 0x7F && buf[6] == 0x81 && buf[7] == 0x00:
		return buf[:8], true // error frame
	case buf[3] == 0xFF && buf[4] == 0xFF:
		if len(buf) < 8 {
			return nil, false
		}
		length := int(buf[5])<<8 | int(buf[6])
		total := 8 + length + 2
		if len(buf) < total {
			return nil, false
		}
		return buf[:total], true
	default:
		if len(buf) < 5 {
			return nil, false
		}
		length := int(buf[3])
		total := 5 + length + 2
		if len(buf) < total {
			return nil, false
		}
		return buf[:total], true
	}
}
