package pn53x

import "fmt"

// CIU (Contactless Interface Unit) register addresses, per the PN53x
// SFR map. This is the single source of truth for every CIU address the
// package touches, directly (TimedTransceive, §4.10) or through the
// writeback cache (§4.4); driver.go and rawselect.go reuse the exported
// entries rather than declaring their own.
const (
	RegCIUTxMode    = 0x6302 // TxCRCEn 0x80, TxSpeed 0x70
	RegCIURxMode    = 0x6303 // RxCRCEn 0x80, RxSpeed 0x70, RxNoErr 0x08, RxMultiple 0x04
	RegCIUTxControl = 0x6304 // Tx2RFEn 0x02, Tx1RFEn 0x01
	RegCIUManualRCV = 0x630D // ParityDisable 0x10

	regCIUCommand    = 0x6331
	regCIUFIFOData   = 0x6339
	regCIUFIFOLevel  = 0x633A
	regCIUBitFraming = 0x633D

	regCIUTMode        = 0x631A
	regCIUTPrescalerHi = 0x631B
	regCIUTPrescalerLo = 0x631C
	regCIUTReloadHi    = 0x631D
	regCIUTReloadLo    = 0x631E
	regCIUTCounterHi   = 0x631F
	regCIUTCounterLo   = 0x6320
)

const (
	ciuCmdIdle       = 0x00
	ciuCmdTransceive = 0x0C

	fifoLevelFlushBit = 0x80
	tModeAutoBit      = 0x80

	maxFIFOPoll = 2000 // poll iterations before giving up
)

// TimingProfile names a specific reader for the device-specific empirical
// timing correction §4.10 requires; the correction compensates for
// per-device analog front-end latency no digital register can expose.
type TimingProfile int

const (
	TimingPN531 TimingProfile = iota
	TimingPN532
	TimingASKLoGO
	TimingSCL3711 // also PN533
	TimingSony
	TimingTouchatag
	TimingACR122
)

func (p TimingProfile) correction() int {
	switch p {
	case TimingPN531:
		return 50
	case TimingPN532:
		return 48
	case TimingASKLoGO:
		return 50
	case TimingSCL3711:
		return 46
	case TimingSony:
		return 54
	case TimingTouchatag:
		return 50
	case TimingACR122:
		return 46
	default:
		return 50
	}
}

// TimedTransceive exchanges tx with the currently selected target and
// reports the tag's response latency in 13.56MHz cycles, corrected per
// §4.10, for Mifare-Classic key-recovery timing analysis. prescaler sets
// the CIU timer's prescale value (must saturate no earlier than the
// longest expected response); lastBitParityOdd is the parity bit of the
// final transmitted byte, which shifts the Rx-detection lag by 64 cycles.
func (e *Engine) TimedTransceive(tx []byte, rxCapacity int, prescaler uint16, profile TimingProfile, lastBitParityOdd bool) ([]byte, int, error) {
	if err := e.flushWriteback(); err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: flush writeback: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUCommand, ciuCmdIdle); err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: reset command: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUFIFOLevel, fifoLevelFlushBit); err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: flush fifo: %w", err)
	}
	if err := e.configureTimer(prescaler); err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: %w", err)
	}
	for _, b := range tx {
		if err := e.writeRegisterImmediate(regCIUFIFOData, b); err != nil {
			return nil, 0, fmt.Errorf("pn53x: timed transceive: feed fifo: %w", err)
		}
	}
	if err := e.writeRegisterImmediate(regCIUBitFraming, 0x80); err != nil { // StartSend
		return nil, 0, fmt.Errorf("pn53x: timed transceive: start send: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUCommand, ciuCmdTransceive); err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: issue transceive: %w", err)
	}

	rx, err := e.drainFIFO(rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: %w", err)
	}

	counterHi, err := e.readRegisterImmediate(regCIUTCounterHi)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: read counter: %w", err)
	}
	counterLo, err := e.readRegisterImmediate(regCIUTCounterLo)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: timed transceive: read counter: %w", err)
	}

	cycles := correctTimerCycles(int(counterHi)<<8|int(counterLo), int(prescaler), profile, lastBitParityOdd)
	return rx, cycles, nil
}

func (e *Engine) configureTimer(prescaler uint16) error {
	if err := e.writeRegisterImmediate(regCIUTMode, tModeAutoBit); err != nil {
		return fmt.Errorf("configure timer: mode: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUTPrescalerHi, byte(prescaler>>8)); err != nil {
		return fmt.Errorf("configure timer: prescaler hi: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUTPrescalerLo, byte(prescaler)); err != nil {
		return fmt.Errorf("configure timer: prescaler lo: %w", err)
	}
	// Reload value saturates the timer well past any expected tag
	// response so the counter can only be stopped by the Rx event.
	if err := e.writeRegisterImmediate(regCIUTReloadHi, 0xFF); err != nil {
		return fmt.Errorf("configure timer: reload hi: %w", err)
	}
	if err := e.writeRegisterImmediate(regCIUTReloadLo, 0xFF); err != nil {
		return fmt.Errorf("configure timer: reload lo: %w", err)
	}
	return nil
}

func (e *Engine) drainFIFO(rxCapacity int) ([]byte, error) {
	rx := make([]byte, 0, rxCapacity)
	for i := 0; i < maxFIFOPoll && len(rx) < rxCapacity; i++ {
		level, err := e.readRegisterImmediate(regCIUFIFOLevel)
		if err != nil {
			return nil, fmt.Errorf("poll fifo level: %w", err)
		}
		n := int(level &^ fifoLevelFlushBit)
		if n == 0 {
			continue
		}
		for j := 0; j < n && len(rx) < rxCapacity; j++ {
			b, err := e.readRegisterImmediate(regCIUFIFOData)
			if err != nil {
				return nil, fmt.Errorf("read fifo: %w", err)
			}
			rx = append(rx, b)
		}
		return rx, nil
	}
	return nil, fmt.Errorf("timed out waiting for fifo data")
}

func (e *Engine) writeRegisterImmediate(addr uint16, value byte) error {
	return e.writeRegistersWire([]uint16{addr}, []byte{value})
}

func (e *Engine) readRegisterImmediate(addr uint16) (byte, error) {
	vals, err := e.readRegistersWire([]uint16{addr})
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// correctTimerCycles converts a raw CIU timer count into a corrected
// 13.56MHz cycle count, per §4.10: prescaler width, a fixed Rx-detection
// lag (2x128 cycles on PN531, 5x128 on every other chip), a 64-cycle
// adjustment for the last transmitted byte's parity bit, and a
// device-specific empirical correction.
func correctTimerCycles(rawCount, prescaler int, profile TimingProfile, lastBitParityOdd bool) int {
	cycles := rawCount * prescaler

	lag := 5 * 128
	if profile == TimingPN531 {
		lag = 2 * 128
	}
	cycles -= lag

	if lastBitParityOdd {
		cycles -= 64
	}
	cycles -= profile.correction()
	return cycles
}
