package pn53x

import (
	"fmt"

	"pn53x.dev/target"
)

// BrTy is the modulation+baud-rate byte InListPassiveTarget, InJumpForDEP,
// and InJumpForPSL take, per the PN53x datasheet's BrTy table.
type BrTy byte

const (
	BrTy106A     BrTy = 0x00
	BrTy212F     BrTy = 0x01
	BrTy424F     BrTy = 0x02
	BrTy106B     BrTy = 0x03
	BrTy106Jewel BrTy = 0x04
)

// InListPassiveTarget polls for up to maxTargets targets of the given
// modulation, optionally supplying initiator data (e.g. a known UID to
// reselect a specific card). It returns the decoded descriptor of the
// first target found and the target number the chip assigned it, used by
// InDataExchange/InDeselect/InRelease.
//
// The chip's InListPassiveTarget directly supports 106A, 106B, 212F/424F
// (FeliCa), and 106Jewel; the 14443-B' and 14443-B2 variants require the
// hand-rolled sequence of §4.8 and are not reachable through this call.
func (e *Engine) InListPassiveTarget(maxTargets int, brty BrTy, initData []byte) (target.Descriptor, byte, error) {
	tx := make([]byte, 0, 3+len(initData))
	tx = append(tx, byte(InListPassiveTarget), byte(maxTargets), byte(brty))
	tx = append(tx, initData...)

	reply, err := e.Transceive(tx, 2+maxTargets*64)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: in list passive target: %w", err)
	}
	body := reply[1:]
	if len(body) < 1 {
		return nil, 0, fmt.Errorf("pn53x: in list passive target: empty reply")
	}
	nbTg := int(body[0])
	if nbTg == 0 {
		return nil, 0, fmt.Errorf("pn53x: in list passive target: no target found")
	}
	body = body[1:]
	if len(body) < 1 {
		return nil, 0, fmt.Errorf("pn53x: in list passive target: missing target number")
	}
	tg := body[0]

	desc, _, err := e.decodeTarget(body, brty)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: in list passive target: %w", err)
	}
	return desc, tg, nil
}

func (e *Engine) decodeTarget(body []byte, brty BrTy) (target.Descriptor, []byte, error) {
	swappedATQA := e.caps.Chip == ChipPN531
	switch brty {
	case BrTy106A:
		return target.DecodeISO14443a(body, swappedATQA)
	case BrTy106B:
		return target.DecodeISO14443b(body[1:])
	case BrTy106Jewel:
		t, err := target.DecodeJewel(body[1:])
		return t, nil, err
	case BrTy212F, BrTy424F:
		return target.DecodeFelica(body[1:])
	default:
		return nil, nil, fmt.Errorf("no target decoder for brty %#x", brty)
	}
}

// InDataExchange exchanges tx with target number tg and returns its reply,
// capped at rxCapacity bytes.
func (e *Engine) InDataExchange(tg byte, tx []byte, rxCapacity int) ([]byte, error) {
	cmd := append([]byte{byte(InDataExchange), tg}, tx...)
	reply, err := e.Transceive(cmd, rxCapacity+2)
	if err != nil {
		return nil, fmt.Errorf("pn53x: in data exchange: %w", err)
	}
	if e.LastError != 0 {
		return nil, fmt.Errorf("pn53x: in data exchange: chip status %#x", e.LastError)
	}
	return reply[2:], nil
}

// InDeselect puts target tg into the HALT state without releasing its RF
// field configuration, per §4.1's INITIATOR->IDLE transition. Its reply
// carries an embedded status byte on every chip except the RC-S360.
func (e *Engine) InDeselect(tg byte) error {
	_, err := e.Transceive([]byte{byte(InDeselect), tg}, 3)
	if err != nil {
		return fmt.Errorf("pn53x: in deselect: %w", err)
	}
	if hasEmbeddedStatus(InDeselect, e.caps.Chip) && e.LastError != 0 {
		return fmt.Errorf("pn53x: in deselect: chip status %#x", e.LastError)
	}
	return nil
}

// InRelease releases target tg and any RF field configuration entirely.
// Like InDeselect, its reply is status-bearing except on the RC-S360.
func (e *Engine) InRelease(tg byte) error {
	_, err := e.Transceive([]byte{byte(InRelease), tg}, 3)
	if err != nil {
		return fmt.Errorf("pn53x: in release: %w", err)
	}
	if hasEmbeddedStatus(InRelease, e.caps.Chip) && e.LastError != 0 {
		return fmt.Errorf("pn53x: in release: chip status %#x", e.LastError)
	}
	return nil
}

// InJumpForDEP actively or passively establishes an NFC-DEP peer-to-peer
// link at the given baud rate, optionally carrying general bytes.
func (e *Engine) InJumpForDEP(active bool, brty BrTy, generalBytes []byte) (*target.DEP, error) {
	actByte := byte(0)
	if active {
		actByte = 1
	}
	tx := append([]byte{byte(InJumpForDEP), actByte, byte(brty), 0x01}, generalBytes...)
	reply, err := e.Transceive(tx, 64)
	if err != nil {
		return nil, fmt.Errorf("pn53x: in jump for dep: %w", err)
	}
	if e.LastError != 0 {
		return nil, fmt.Errorf("pn53x: in jump for dep: chip status %#x", e.LastError)
	}
	dep, err := target.DecodeDEP(reply[2:])
	if err != nil {
		return nil, fmt.Errorf("pn53x: in jump for dep: %w", err)
	}
	return dep, nil
}
