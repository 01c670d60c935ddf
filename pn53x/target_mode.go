package pn53x

import "fmt"

// TgInitAsTarget configures the chip to emulate a target accepting any of
// the given mode bits until an external initiator selects it, per §4.1's
// TARGET state. On PN532 a successful reply also indicates the chip's RF
// field woke it from POWERDOWN, so the engine resets power to NORMAL.
func (e *Engine) TgInitAsTarget(mode byte, mifareParams, felicaParams, nfcid3t, generalBytes []byte) ([]byte, error) {
	tx := []byte{byte(TgInitAsTarget), mode}
	tx = append(tx, mifareParams...)
	tx = append(tx, felicaParams...)
	tx = append(tx, nfcid3t...)
	tx = append(tx, byte(len(generalBytes)))
	tx = append(tx, generalBytes...)
	tx = append(tx, 0x00) // HistoricalBytes length, unused

	reply, err := e.Transceive(tx, 64)
	if err != nil {
		if e.caps.Chip == ChipPN532 {
			// The PN532 sleeps in POWERDOWN while waiting as a target and
			// no successful reply has shown it awake again.
			e.power = PowerDownMode
		}
		return nil, fmt.Errorf("pn53x: tg init as target: %w", err)
	}
	e.power = PowerNormal
	return reply[1:], nil
}

// TgGetData reads the next command the selecting initiator sent, capped
// at rxCapacity bytes.
func (e *Engine) TgGetData(rxCapacity int) ([]byte, error) {
	reply, err := e.Transceive([]byte{byte(TgGetData)}, rxCapacity+2)
	if err != nil {
		return nil, fmt.Errorf("pn53x: tg get data: %w", err)
	}
	if e.LastError != 0 {
		return nil, fmt.Errorf("pn53x: tg get data: chip status %#x", e.LastError)
	}
	return reply[2:], nil
}

// TgSetData sends tx to the initiator currently communicating with this
// emulated target.
func (e *Engine) TgSetData(tx []byte) error {
	cmd := append([]byte{byte(TgSetData)}, tx...)
	_, err := e.Transceive(cmd, 3)
	if err != nil {
		return fmt.Errorf("pn53x: tg set data: %w", err)
	}
	if e.LastError != 0 {
		return fmt.Errorf("pn53x: tg set data: chip status %#x", e.LastError)
	}
	return nil
}
