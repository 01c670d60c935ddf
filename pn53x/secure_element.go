package pn53x

import "fmt"

// SAM configuration modes, first argument to SAMConfiguration. Mode 1 is
// also issued internally by wakeupIfNeeded to complete the LOWVBAT->NORMAL
// transition; the others switch a secure element attached to the chip's
// S2C interface into virtual-card, wired, or dual-card mode.
const (
	SEModeNormal      byte = 0x01
	SEModeVirtualCard byte = 0x02
	SEModeWired       byte = 0x03
	SEModeDual        byte = 0x04
)

// InitiatorInitSecureElement switches an attached secure element into
// seMode before initiator operations begin, per §4.1's
// initiator_init_secure_element.
func (e *Engine) InitiatorInitSecureElement(seMode byte) error {
	_, err := e.Transceive([]byte{byte(SAMConfiguration), seMode}, 3)
	if err != nil {
		return fmt.Errorf("pn53x: initiator init secure element: %w", err)
	}
	return nil
}
