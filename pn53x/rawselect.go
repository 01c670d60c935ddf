package pn53x

import (
	"fmt"

	"pn53x.dev/target"
)

// Raw anticollision command bytes for the targets InListPassiveTarget
// can't select directly (§4.8).
var (
	rawINITIATE = []byte{0x06, 0x00}       // ISO14443-B' INITIATE
	rawREQT     = []byte{0x05}             // ISO14443-B' REQT
	raw2SRInitiate = []byte{0x06}          // ISO14443-2B ST SRx INITIATE
	raw2SRSelect   = []byte{0x0E}          // ISO14443-2B ST SRx SELECT
	raw2CTRequest  = []byte{0x0B}          // ISO14443-2B ASK CTx REQUEST
)

// prepareRawB configures the chip for a raw ISO14443-B exchange outside
// InListPassiveTarget's supported modulation set: RF field on, easy
// framing and CRC handling disabled so the raw anticollision bytes reach
// the tag unmodified, and the modulation forced to 14443-B at 106kbps.
func (e *Engine) prepareRawB() {
	e.WriteRegister(RegCIUTxControl, 0x03, 0x03) // Tx1RFEn|Tx2RFEn: RF field on
	// CRCEn off, speed bits (0x70) 106kbps, framing bits (0x03) ISO14443-B.
	e.WriteRegister(RegCIUTxMode, 0xF3, 0x03)
	e.WriteRegister(RegCIURxMode, 0xF3, 0x03)
}

// SelectISO14443BI runs the hand-rolled pre-ISO14443-B ("B'") anticollision
// sequence: INITIATE then REQT, decoding the REPGEN reply.
func (e *Engine) SelectISO14443BI() (*target.ISO14443bi, error) {
	e.prepareRawB()
	if _, err := e.InCommunicateThru(rawINITIATE, 16); err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443bi: initiate: %w", err)
	}
	reply, err := e.InCommunicateThru(rawREQT, 32)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443bi: reqt: %w", err)
	}
	t, err := target.DecodeISO14443bi(reply)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443bi: %w", err)
	}
	return t, nil
}

// SelectISO14443B2SR runs the hand-rolled ISO14443-2B ST SRx anticollision
// sequence: INITIATE then SELECT, decoding the 8-byte UID.
func (e *Engine) SelectISO14443B2SR() (*target.ISO14443b2SR, error) {
	e.prepareRawB()
	if _, err := e.InCommunicateThru(raw2SRInitiate, 16); err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443b-2sr: initiate: %w", err)
	}
	reply, err := e.InCommunicateThru(raw2SRSelect, 16)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443b-2sr: select: %w", err)
	}
	t, err := target.DecodeISO14443b2SR(reply)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443b-2sr: %w", err)
	}
	return t, nil
}

// SelectISO14443B2CT runs the hand-rolled ISO14443-2B ASK CTx REQUEST,
// decoding the UID-LSB/product/fab/UID-MSB reply.
func (e *Engine) SelectISO14443B2CT() (*target.ISO14443b2CT, error) {
	e.prepareRawB()
	reply, err := e.InCommunicateThru(raw2CTRequest, 16)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443b-2ct: request: %w", err)
	}
	t, err := target.DecodeISO14443b2CT(reply)
	if err != nil {
		return nil, fmt.Errorf("pn53x: select iso14443b-2ct: %w", err)
	}
	return t, nil
}

// InCommunicateThru sends a raw bitstream to the currently modulated
// field and returns the tag's raw reply, bypassing InDataExchange's
// target-number addressing. Used for the B'/B2-SR/B2-CT anticollision
// sequences that have no InListPassiveTarget support.
func (e *Engine) InCommunicateThru(tx []byte, rxCapacity int) ([]byte, error) {
	cmd := append([]byte{byte(InCommunicateThru)}, tx...)
	reply, err := e.Transceive(cmd, rxCapacity+2)
	if err != nil {
		return nil, fmt.Errorf("pn53x: in communicate thru: %w", err)
	}
	if e.LastError != 0 {
		return nil, fmt.Errorf("pn53x: in communicate thru: chip status %#x", e.LastError)
	}
	return reply[2:], nil
}
