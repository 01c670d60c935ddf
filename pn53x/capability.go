package pn53x

import "fmt"

// Capabilities records what a detected chip's firmware supports, derived
// from the GetFirmwareVersion reply per §4.6.
type Capabilities struct {
	Chip            Chip
	FirmwareVersion byte
	FirmwareRev     byte
	// ModulationMask mirrors the support byte PN532/PN533 report:
	// bit 0 ISO14443-A, bit 1 ISO14443-B, bit 2 ISO18092 (FeliCa/DEP).
	ModulationMask byte

	SupportsAutoPoll             bool // PN532 only
	SupportsPaypass              bool // PN533 only
	SupportsQuartetByteExchange  bool // PN533 only
	RepliesCarryStatusPrefix     bool // PN533 only: ReadRegister/WriteRegister/FIFO reads
}

// DetectCapabilities interprets a GetFirmwareVersion reply body (the bytes
// after the opcode echo, i.e. rx[1:]) per §4.6: 2 bytes on PN531 (no
// version IC byte), 4 bytes on PN532/PN533/RC-S360.
func DetectCapabilities(body []byte) (Capabilities, error) {
	switch len(body) {
	case 2:
		return Capabilities{
			Chip:            ChipPN531,
			FirmwareVersion: body[0],
			FirmwareRev:     body[1],
			ModulationMask:  0b101, // ISO14443-A and ISO18092; no ISO14443-B
		}, nil
	case 4:
		ic, ver, rev, support := body[0], body[1], body[2], body[3]
		chip := ChipPN532
		switch {
		case ic == 0x32:
			chip = ChipPN532
		case ic == 0x33 && ver == 0x01:
			chip = ChipRCS360
		case ic == 0x33:
			chip = ChipPN533
		default:
			return Capabilities{}, fmt.Errorf("pn53x: unknown firmware IC byte %#02x", ic)
		}
		caps := Capabilities{
			Chip:            chip,
			FirmwareVersion: ver,
			FirmwareRev:     rev,
			ModulationMask:  support,
		}
		caps.SupportsAutoPoll = chip == ChipPN532
		caps.SupportsPaypass = chip == ChipPN533 || chip == ChipRCS360
		caps.SupportsQuartetByteExchange = chip == ChipPN533 || chip == ChipRCS360
		// Only real PN533 silicon prefixes ReadRegister/WriteRegister
		// replies with a status byte; the RC-S360 (IC 0x33/ver 0x01) does
		// not, per the original driver's PN533-only check.
		caps.RepliesCarryStatusPrefix = chip == ChipPN533
		return caps, nil
	default:
		return Capabilities{}, fmt.Errorf("pn53x: unexpected GetFirmwareVersion reply length %d", len(body))
	}
}

// SupportsISO14443B reports whether this chip's firmware advertises
// ISO14443-B modulation support. PN531 never does.
func (c Capabilities) SupportsISO14443B() bool {
	return c.Chip != ChipPN531 && c.ModulationMask&0b010 != 0
}

// SupportsJewel reports whether the firmware is documented to support the
// Jewel/Topaz modulation; PN531 lacks it.
func (c Capabilities) SupportsJewel() bool {
	return c.Chip != ChipPN531
}
