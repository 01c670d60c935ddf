// Package driver wires each transport/* implementation to a pn53x.Engine
// and registers the resulting nfc.Driver with the root package's registry,
// per §4.1's driver vtable and §4.2's connection-string grammar.
package driver

import (
	"fmt"
	"log"
	"time"

	nfc "pn53x.dev"
	"pn53x.dev/pn53x"
	"pn53x.dev/target"
	"pn53x.dev/transport"
)

func msToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// handle adapts a pn53x.Engine to nfc.DeviceHandle, shared by every
// transport-specific driver below.
type handle struct {
	engine   *pn53x.Engine
	selected *targetHandle
	name     string
}

func newHandle(name string, tr transport.Transport, logger *log.Logger) (*handle, error) {
	e := pn53x.New(tr, logger)
	if err := e.Open(); err != nil {
		tr.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &handle{engine: e, name: name}, nil
}

func (h *handle) Close() error { return h.engine.Close() }

func (h *handle) Abort() error {
	h.engine.Abort()
	return nil
}

func (h *handle) Idle() error {
	if h.selected != nil {
		_ = h.engine.InRelease(0)
		h.selected = nil
	}
	if h.engine.Capabilities().Chip == pn53x.ChipPN532 {
		// PowerDown to LOWVBAT on the way to IDLE, per §4.1; a failed
		// PowerDown is returned and the recorded power mode stays NORMAL.
		if _, err := h.engine.Transceive([]byte{byte(pn53x.PowerDown), 0x20}, 3); err != nil {
			return fmt.Errorf("%s: idle: powerdown: %w", h.name, err)
		}
		h.engine.NotePowerDown()
	}
	return nil
}

func (h *handle) InitiatorInitSecureElement(seMode int) error {
	if err := h.engine.InitiatorInitSecureElement(byte(seMode)); err != nil {
		return fmt.Errorf("%s: initiator init secure element: %w", h.name, err)
	}
	return nil
}

func (h *handle) InitiatorInit() error {
	// RFConfiguration item 0x01 (RF field) with value 0x01 switches the RF
	// field on for polling; no other RFConfiguration item is sent.
	_, err := h.engine.Transceive([]byte{byte(pn53x.RFConfiguration), 0x01, 0x01}, 3)
	if err != nil {
		return fmt.Errorf("%s: initiator init: %w", h.name, err)
	}
	return nil
}

func (h *handle) InitiatorPollTarget(mods []nfc.Modulation) (nfc.Target, error) {
	var lastErr error
	for _, mod := range mods {
		brty, err := brtyFor(mod)
		if err != nil {
			lastErr = err
			continue
		}
		desc, tg, err := h.engine.InListPassiveTarget(1, brty, nil)
		if err != nil {
			lastErr = err
			continue
		}
		th := &targetHandle{desc: desc, mod: mod, tg: tg}
		h.selected = th
		return th, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no modulation supplied")
	}
	return nil, fmt.Errorf("%s: poll target: %w", h.name, lastErr)
}

func (h *handle) InitiatorSelectPassiveTarget(mod nfc.Modulation, initData []byte) (nfc.Target, error) {
	brty, err := brtyFor(mod)
	if err != nil {
		return nil, fmt.Errorf("%s: select passive target: %w", h.name, err)
	}
	desc, tg, err := h.engine.InListPassiveTarget(1, brty, initData)
	if err != nil {
		return nil, fmt.Errorf("%s: select passive target: %w", h.name, err)
	}
	th := &targetHandle{desc: desc, mod: mod, tg: tg}
	h.selected = th
	return th, nil
}

func (h *handle) InitiatorSelectDepTarget(active bool, baud nfc.BaudRate, generalBytes []byte) (nfc.Target, error) {
	brty, err := depBrtyFor(baud)
	if err != nil {
		return nil, fmt.Errorf("%s: select dep target: %w", h.name, err)
	}
	dep, err := h.engine.InJumpForDEP(active, brty, generalBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: select dep target: %w", h.name, err)
	}
	th := &targetHandle{desc: dep, mod: nfc.Modulation{Type: nfc.DEP, BaudRate: baud}, tg: 1}
	h.selected = th
	return th, nil
}

func depBrtyFor(baud nfc.BaudRate) (pn53x.BrTy, error) {
	switch baud {
	case nfc.NBR106:
		return pn53x.BrTy106A, nil
	case nfc.NBR212:
		return pn53x.BrTy212F, nil
	case nfc.NBR424:
		return pn53x.BrTy424F, nil
	default:
		return 0, fmt.Errorf("dep baud rate %v not supported", baud)
	}
}

func (h *handle) InitiatorTransceiveBytes(tx []byte, rxCapacity int) ([]byte, error) {
	if h.selected == nil {
		return nil, fmt.Errorf("%s: transceive: no target selected", h.name)
	}
	rx, err := h.engine.InDataExchange(h.selected.tg, tx, rxCapacity)
	if err != nil {
		return nil, fmt.Errorf("%s: transceive: %w", h.name, err)
	}
	return rx, nil
}

func (h *handle) InitiatorTransceiveBits(tx []byte, txBits int, rxCapacity int) ([]byte, int, error) {
	if h.selected == nil {
		return nil, 0, fmt.Errorf("%s: transceive bits: no target selected", h.name)
	}
	rx, rxBits, err := h.engine.TransceiveBits(tx, txBits, rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: transceive bits: %w", h.name, err)
	}
	return rx, rxBits, nil
}

func (h *handle) InitiatorTargetIsPresent() error {
	if h.selected == nil {
		return fmt.Errorf("%s: target is present: no target selected", h.name)
	}
	_, err := h.engine.InDataExchange(h.selected.tg, nil, 0)
	if err != nil {
		return fmt.Errorf("%s: target is present: %w", h.name, err)
	}
	return nil
}

func (h *handle) InitiatorDeselectTarget() error {
	if h.selected == nil {
		return nil
	}
	tg := h.selected.tg
	h.selected = nil
	if err := h.engine.InDeselect(tg); err != nil {
		return fmt.Errorf("%s: deselect target: %w", h.name, err)
	}
	return nil
}

func (h *handle) TargetInit(mods []nfc.Modulation) (nfc.Target, error) {
	mode := byte(0)
	reply, err := h.engine.TgInitAsTarget(mode, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: target init: %w", h.name, err)
	}
	desc, _, err := target.DecodeISO14443a(reply, h.engine.Capabilities().Chip == pn53x.ChipPN531)
	if err != nil {
		return nil, fmt.Errorf("%s: target init: %w", h.name, err)
	}
	th := &targetHandle{desc: desc, mod: nfc.Modulation{Type: nfc.ISO14443A, BaudRate: nfc.NBR106}}
	h.selected = th
	return th, nil
}

func (h *handle) TargetSend(tx []byte) error {
	if err := h.engine.TgSetData(tx); err != nil {
		return fmt.Errorf("%s: target send: %w", h.name, err)
	}
	return nil
}

func (h *handle) TargetReceive(rxCapacity int) ([]byte, error) {
	rx, err := h.engine.TgGetData(rxCapacity)
	if err != nil {
		return nil, fmt.Errorf("%s: target receive: %w", h.name, err)
	}
	return rx, nil
}

func (h *handle) TargetSendBits(tx []byte, txBits int) error {
	if err := h.engine.TgSendBits(tx, txBits); err != nil {
		return fmt.Errorf("%s: target send bits: %w", h.name, err)
	}
	return nil
}

func (h *handle) TargetReceiveBits(rxCapacity int) ([]byte, int, error) {
	rx, rxBits, err := h.engine.TgReceiveBits(rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: target receive bits: %w", h.name, err)
	}
	return rx, rxBits, nil
}

// Powerdown drives the chip into LOWVBAT. It is issued only on PN532, the
// one chip that observes the low-power modes (§4.5); other chips get
// EDEVNOTSUPP.
func (h *handle) Powerdown() error {
	if h.engine.Capabilities().Chip != pn53x.ChipPN532 {
		return fmt.Errorf("%s: powerdown: %w", h.name, nfc.EDEVNOTSUPP)
	}
	if _, err := h.engine.Transceive([]byte{byte(pn53x.PowerDown), 0x20}, 3); err != nil {
		return fmt.Errorf("%s: powerdown: %w", h.name, err)
	}
	h.engine.NotePowerDown()
	return nil
}

// SupportedModulations reports the modulation types this chip's
// firmware advertises, per §4.6's capability detection.
func (h *handle) SupportedModulations() []nfc.ModulationType {
	caps := h.engine.Capabilities()
	mods := []nfc.ModulationType{nfc.ISO14443A, nfc.Felica, nfc.DEP}
	if caps.SupportsISO14443B() {
		mods = append(mods, nfc.ISO14443B, nfc.ISO14443BI, nfc.ISO14443B2SR, nfc.ISO14443B2CT)
	}
	if caps.SupportsJewel() {
		mods = append(mods, nfc.Jewel)
	}
	return mods
}

func (h *handle) SupportedBaudRates(mod nfc.ModulationType) []nfc.BaudRate {
	switch mod {
	case nfc.Felica:
		return []nfc.BaudRate{nfc.NBR212, nfc.NBR424}
	case nfc.DEP:
		return []nfc.BaudRate{nfc.NBR106, nfc.NBR212, nfc.NBR424}
	case nfc.ISO14443A, nfc.ISO14443B, nfc.ISO14443BI, nfc.ISO14443B2SR, nfc.ISO14443B2CT, nfc.Jewel:
		return []nfc.BaudRate{nfc.NBR106}
	default:
		return nil
	}
}

func (h *handle) Information() string {
	c := h.engine.Capabilities()
	return fmt.Sprintf("%s firmware %d.%d, chip %s", h.name, c.FirmwareVersion, c.FirmwareRev, c.Chip)
}

func (h *handle) SetPropertyBool(prop nfc.Property, value bool) error {
	switch prop {
	case nfc.HandleCRC, nfc.EasyFraming:
		// TxMode/RxMode CRCEn, staged through the writeback cache (§4.4).
		// EasyFraming and HandleCRC both gate the chip's own CRC
		// handling, so they share the same bit.
		v := byte(0)
		if value {
			v = 0x80
		}
		h.engine.WriteRegister(pn53x.RegCIUTxMode, 0x80, v)
		h.engine.WriteRegister(pn53x.RegCIURxMode, 0x80, v)
		return nil
	case nfc.HandleParity:
		// ManualRCV ParityDisable is the inverse of "handle parity".
		v := byte(0)
		if !value {
			v = 0x10
		}
		h.engine.WriteRegister(pn53x.RegCIUManualRCV, 0x10, v)
		return nil
	case nfc.AutoISO14443_4:
		v := byte(0)
		if value {
			v = 0x40
		}
		h.engine.WriteRegister(pn53x.RegCIURxMode, 0x40, v)
		return nil
	case nfc.ActivateField:
		v := byte(0)
		if value {
			v = 0x03
		}
		h.engine.WriteRegister(pn53x.RegCIUTxControl, 0x03, v) // Tx1RFEn|Tx2RFEn
		return nil
	default:
		return fmt.Errorf("%s: set property bool: %w", h.name, nfc.EDEVNOTSUPP)
	}
}

func (h *handle) SetPropertyInt(prop nfc.Property, value int) error {
	switch prop {
	case nfc.TimeoutCommand:
		h.engine.SetTimeout(msToDuration(value))
		return nil
	default:
		return fmt.Errorf("%s: set property int: %w", h.name, nfc.EDEVNOTSUPP)
	}
}

func (h *handle) LastError() error {
	if h.engine.LastError == 0 {
		return nil
	}
	return fmt.Errorf("%s: chip status %#x: %w", h.name, h.engine.LastError, nfc.ECHIP)
}

// targetHandle adapts a decoded target.Descriptor to nfc.Target.
type targetHandle struct {
	desc target.Descriptor
	mod  nfc.Modulation
	tg   byte
}

func (t *targetHandle) Modulation() nfc.Modulation { return t.mod }
func (t *targetHandle) UID() []byte                { return t.desc.UID() }

// brtyFor maps a public Modulation to the wire-level BrTy byte
// InListPassiveTarget understands; the B'/B2-SR/B2-CT variants require the
// hand-rolled raw-byte sequence of §4.8 and are intentionally excluded.
func brtyFor(mod nfc.Modulation) (pn53x.BrTy, error) {
	switch mod.Type {
	case nfc.ISO14443A:
		return pn53x.BrTy106A, nil
	case nfc.ISO14443B:
		return pn53x.BrTy106B, nil
	case nfc.Jewel:
		return pn53x.BrTy106Jewel, nil
	case nfc.Felica:
		if mod.BaudRate == nfc.NBR424 {
			return pn53x.BrTy424F, nil
		}
		return pn53x.BrTy212F, nil
	default:
		return 0, fmt.Errorf("modulation %s requires a hand-rolled transceive sequence, not InListPassiveTarget", mod.Type)
	}
}
