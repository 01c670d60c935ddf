package pn53x

// Chip identifies which member of the PN53x family (or clone) a device's
// firmware reports, per §4.6.
type Chip int

const (
	ChipUnknown Chip = iota
	ChipPN531
	ChipPN532
	ChipPN533
	ChipRCS360
)

func (c Chip) String() string {
	switch c {
	case ChipPN531:
		return "PN531"
	case ChipPN532:
		return "PN532"
	case ChipPN533:
		return "PN533"
	case ChipRCS360:
		return "RC-S360"
	default:
		return "unknown"
	}
}

// feature mask bits, matching the "1=PN531, 2=PN532, 4=PN533" catalog.
const (
	featPN531 = 1 << iota
	featPN532
	featPN533
)

func (c Chip) featureBit() int {
	switch c {
	case ChipPN531:
		return featPN531
	case ChipPN532:
		return featPN532
	case ChipPN533, ChipRCS360:
		return featPN533
	default:
		return 0
	}
}

// Supports reports whether this chip's firmware is documented to
// implement the given opcode.
func (c Chip) Supports(op Opcode) bool {
	mask, ok := opcodeFeatures[op]
	if !ok {
		return false
	}
	return mask&c.featureBit() != 0
}

// Opcode is a PN53x command code, the first byte of the data payload.
type Opcode byte

const (
	Diagnose                    Opcode = 0x00
	GetFirmwareVersion          Opcode = 0x02
	GetGeneralStatus            Opcode = 0x04
	ReadRegisterOp              Opcode = 0x06
	WriteRegisterOp             Opcode = 0x08
	ReadGPIO                    Opcode = 0x0C
	WriteGPIO                   Opcode = 0x0E
	SetSerialBaudRate           Opcode = 0x10
	SetParameters                Opcode = 0x12
	SAMConfiguration             Opcode = 0x14
	PowerDown                    Opcode = 0x16
	AlparCommandForTDA           Opcode = 0x18
	RFConfiguration              Opcode = 0x32
	RFRegulationTest             Opcode = 0x58
	InJumpForDEP                 Opcode = 0x56
	InJumpForPSL                 Opcode = 0x46
	InListPassiveTarget          Opcode = 0x4A
	InATR                        Opcode = 0x50
	InPSL                        Opcode = 0x4E
	InDataExchange               Opcode = 0x40
	InCommunicateThru            Opcode = 0x42
	InQuartetByteExchange        Opcode = 0x38
	InDeselect                   Opcode = 0x44
	InRelease                    Opcode = 0x52
	InSelect                     Opcode = 0x54
	InAutoPoll                   Opcode = 0x60
	InActivateDeactivatePaypass  Opcode = 0x48
	TgInitAsTarget               Opcode = 0x8C
	TgSetGeneralBytes            Opcode = 0x92
	TgGetData                    Opcode = 0x86
	TgSetData                    Opcode = 0x8E
	TgSetMetaData                Opcode = 0x94
	TgGetInitiatorCommand        Opcode = 0x88
	TgResponseToInitiator        Opcode = 0x90
	TgGetTargetStatus            Opcode = 0x8A
)

// opcodeFeatures mirrors the original driver's pn53x_commands[] table
// (PNCMD entries): which of PN531/PN532/PN533 firmware documents each
// opcode. RC-S360 firmware reports itself as PN533-family (§4.6) and is
// gated by featPN533 via Chip.featureBit.
var opcodeFeatures = map[Opcode]int{
	Diagnose:                    featPN531 | featPN532 | featPN533,
	GetFirmwareVersion:          featPN531 | featPN532 | featPN533,
	GetGeneralStatus:            featPN531 | featPN532 | featPN533,
	ReadRegisterOp:              featPN531 | featPN532 | featPN533,
	WriteRegisterOp:             featPN531 | featPN532 | featPN533,
	ReadGPIO:                    featPN531 | featPN532 | featPN533,
	WriteGPIO:                   featPN531 | featPN532 | featPN533,
	SetSerialBaudRate:           featPN531 | featPN532 | featPN533,
	SetParameters:               featPN531 | featPN532 | featPN533,
	SAMConfiguration:            featPN531 | featPN532,
	PowerDown:                   featPN531 | featPN532,
	AlparCommandForTDA:          featPN533,
	RFConfiguration:             featPN531 | featPN532 | featPN533,
	RFRegulationTest:            featPN531 | featPN532 | featPN533,
	InJumpForDEP:                featPN531 | featPN532 | featPN533,
	InJumpForPSL:                featPN531 | featPN532 | featPN533,
	InListPassiveTarget:         featPN531 | featPN532 | featPN533,
	InATR:                       featPN531 | featPN532 | featPN533,
	InPSL:                       featPN531 | featPN532 | featPN533,
	InDataExchange:              featPN531 | featPN532 | featPN533,
	InCommunicateThru:           featPN531 | featPN532 | featPN533,
	InQuartetByteExchange:       featPN533,
	InDeselect:                  featPN531 | featPN532 | featPN533,
	InRelease:                   featPN531 | featPN532 | featPN533,
	InSelect:                    featPN531 | featPN532 | featPN533,
	InAutoPoll:                  featPN532,
	InActivateDeactivatePaypass: featPN533,
	TgInitAsTarget:              featPN531 | featPN532 | featPN533,
	TgSetGeneralBytes:           featPN531 | featPN532 | featPN533,
	TgGetData:                   featPN531 | featPN532 | featPN533,
	TgSetData:                   featPN531 | featPN532 | featPN533,
	TgSetMetaData:               featPN531 | featPN532 | featPN533,
	TgGetInitiatorCommand:       featPN531 | featPN532 | featPN533,
	TgResponseToInitiator:       featPN531 | featPN532 | featPN533,
	TgGetTargetStatus:           featPN531 | featPN532 | featPN533,
}

// statusBearing lists commands whose reply carries an embedded status byte
// in rx[0] per §4.9. InDeselect/InRelease are handled specially: they are
// status-bearing everywhere except RC-S360, checked by the caller.
var statusBearing = map[Opcode]bool{
	PowerDown:             true,
	InDataExchange:        true,
	InCommunicateThru:     true,
	InJumpForPSL:          true,
	InPSL:                 true,
	InATR:                 true,
	InSelect:              true,
	InJumpForDEP:          true,
	TgGetData:             true,
	TgGetInitiatorCommand: true,
	TgSetData:             true,
	TgResponseToInitiator: true,
	TgSetGeneralBytes:     true,
	TgSetMetaData:         true,
}

// hasEmbeddedStatus reports whether op's reply carries a status byte in
// rx[0] on the given chip, folding in the RC-S360 InDeselect/InRelease
// special case from §4.9 / §9.
func hasEmbeddedStatus(op Opcode, chip Chip) bool {
	if op == InDeselect || op == InRelease {
		return chip != ChipRCS360
	}
	return statusBearing[op]
}
