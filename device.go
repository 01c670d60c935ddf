package nfc

import (
	"fmt"
)

// Device is a single open connection to a PN53x-family reader. It is not
// safe for concurrent use by more than one goroutine at a time.
type Device struct {
	ctx        *Context
	connstring string
	handle     DeviceHandle
	mode       OperatingMode
}

func newDevice(ctx *Context, connstring string, handle DeviceHandle) *Device {
	return &Device{ctx: ctx, connstring: connstring, handle: handle, mode: Idle}
}

// Connstring returns the connection string this device was opened with.
func (d *Device) Connstring() string { return d.connstring }

// OperatingMode reports whether the device is idle, an initiator, or a
// target, per the lifecycle state machine of §4.1.
func (d *Device) OperatingMode() OperatingMode { return d.mode }

// Close transitions the device back to IDLE (if necessary) and releases
// the underlying transport.
func (d *Device) Close() error {
	if err := d.idleLocked(); err != nil {
		d.ctx.logf("close %s: idle transition: %v", d.connstring, err)
	}
	return d.handle.Close()
}

// Abort interrupts an in-flight blocking operation (initiator_poll_target,
// target_init, a transceive waiting on a target) from another goroutine.
func (d *Device) Abort() error {
	return d.handle.Abort()
}

// Idle transitions the device back to IDLE from either INITIATOR or
// TARGET mode, per §4.1's deselect/release-on-exit rule.
func (d *Device) Idle() error {
	return d.idleLocked()
}

func (d *Device) idleLocked() error {
	switch d.mode {
	case Idle:
		return nil
	case Initiator:
		if err := d.handle.InitiatorDeselectTarget(); err != nil {
			return fmt.Errorf("nfc: idle: %w", err)
		}
	case Target:
		// Target mode is released by the chip's InRelease handling inside
		// Idle(); nothing additional to do here.
	}
	if err := d.handle.Idle(); err != nil {
		return fmt.Errorf("nfc: idle: %w", err)
	}
	d.mode = Idle
	return nil
}

// InitiatorInit configures the device to poll/select targets as an
// initiator.
func (d *Device) InitiatorInit() error {
	if err := d.handle.InitiatorInit(); err != nil {
		return fmt.Errorf("nfc: initiator init: %w", err)
	}
	d.mode = Initiator
	return nil
}

// InitiatorInitSecureElement switches an attached secure element into
// seMode before initiator operations begin.
func (d *Device) InitiatorInitSecureElement(seMode int) error {
	if err := d.handle.InitiatorInitSecureElement(seMode); err != nil {
		return fmt.Errorf("nfc: initiator init secure element: %w", err)
	}
	return nil
}

// InitiatorPollTarget tries each of mods once, in order, and returns the
// first target that answers; when none answers it returns the last error
// without trying again.
func (d *Device) InitiatorPollTarget(mods []Modulation) (Target, error) {
	if d.mode != Initiator {
		return nil, fmt.Errorf("nfc: poll target: %w", notInitiatorErr(d.mode))
	}
	t, err := d.handle.InitiatorPollTarget(mods)
	if err != nil {
		return nil, fmt.Errorf("nfc: poll target: %w", err)
	}
	return t, nil
}

// InitiatorSelectPassiveTarget selects a single target of the given
// modulation, optionally supplying initiator data (e.g. a known UID).
func (d *Device) InitiatorSelectPassiveTarget(mod Modulation, initData []byte) (Target, error) {
	if d.mode != Initiator {
		return nil, fmt.Errorf("nfc: select passive target: %w", notInitiatorErr(d.mode))
	}
	t, err := d.handle.InitiatorSelectPassiveTarget(mod, initData)
	if err != nil {
		return nil, fmt.Errorf("nfc: select passive target: %w", err)
	}
	return t, nil
}

// InitiatorSelectDepTarget establishes an NFC-DEP peer-to-peer link at
// the given baud rate, actively or passively, optionally carrying
// general bytes.
func (d *Device) InitiatorSelectDepTarget(active bool, baud BaudRate, generalBytes []byte) (Target, error) {
	if d.mode != Initiator {
		return nil, fmt.Errorf("nfc: select dep target: %w", notInitiatorErr(d.mode))
	}
	t, err := d.handle.InitiatorSelectDepTarget(active, baud, generalBytes)
	if err != nil {
		return nil, fmt.Errorf("nfc: select dep target: %w", err)
	}
	return t, nil
}

// InitiatorTransceiveBytes exchanges tx with the currently selected
// target and returns its reply, capped at rxCapacity bytes.
func (d *Device) InitiatorTransceiveBytes(tx []byte, rxCapacity int) ([]byte, error) {
	if d.mode != Initiator {
		return nil, fmt.Errorf("nfc: transceive: %w", notInitiatorErr(d.mode))
	}
	rx, err := d.handle.InitiatorTransceiveBytes(tx, rxCapacity)
	if err != nil {
		return nil, fmt.Errorf("nfc: transceive: %w", err)
	}
	return rx, nil
}

// InitiatorTransceiveBits exchanges the low txBits of tx with the
// currently selected target, bypassing automatic CRC/parity handling so
// arbitrary bit counts can be framed, and returns the reply along with
// its exact bit count.
func (d *Device) InitiatorTransceiveBits(tx []byte, txBits int, rxCapacity int) ([]byte, int, error) {
	if d.mode != Initiator {
		return nil, 0, fmt.Errorf("nfc: transceive bits: %w", notInitiatorErr(d.mode))
	}
	rx, rxBits, err := d.handle.InitiatorTransceiveBits(tx, txBits, rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("nfc: transceive bits: %w", err)
	}
	return rx, rxBits, nil
}

// InitiatorTargetIsPresent reports whether the previously selected
// target still responds.
func (d *Device) InitiatorTargetIsPresent() error {
	if d.mode != Initiator {
		return fmt.Errorf("nfc: target is present: %w", notInitiatorErr(d.mode))
	}
	return d.handle.InitiatorTargetIsPresent()
}

// InitiatorDeselectTarget releases the currently selected target without
// leaving INITIATOR mode.
func (d *Device) InitiatorDeselectTarget() error {
	if d.mode != Initiator {
		return fmt.Errorf("nfc: deselect target: %w", notInitiatorErr(d.mode))
	}
	return d.handle.InitiatorDeselectTarget()
}

// TargetInit configures the device to emulate a target, blocking until an
// external initiator selects it. mods is passed to the driver; the PN53x
// driver does not consult it and always emulates an ISO14443-A target.
func (d *Device) TargetInit(mods []Modulation) (Target, error) {
	t, err := d.handle.TargetInit(mods)
	if err != nil {
		return nil, fmt.Errorf("nfc: target init: %w", err)
	}
	d.mode = Target
	return t, nil
}

// TargetSend transmits tx to the initiator currently communicating with
// this emulated target.
func (d *Device) TargetSend(tx []byte) error {
	if d.mode != Target {
		return fmt.Errorf("nfc: target send: %w", fmt.Errorf("device is not in target mode"))
	}
	return d.handle.TargetSend(tx)
}

// TargetReceive reads the next command the initiator sends, capped at
// rxCapacity bytes.
func (d *Device) TargetReceive(rxCapacity int) ([]byte, error) {
	if d.mode != Target {
		return nil, fmt.Errorf("nfc: target receive: %w", fmt.Errorf("device is not in target mode"))
	}
	return d.handle.TargetReceive(rxCapacity)
}

// TargetSendBits transmits the low txBits of tx to the initiator
// currently communicating with this emulated target.
func (d *Device) TargetSendBits(tx []byte, txBits int) error {
	if d.mode != Target {
		return fmt.Errorf("nfc: target send bits: device is not in target mode")
	}
	return d.handle.TargetSendBits(tx, txBits)
}

// TargetReceiveBits reads the next command the initiator sends along
// with its exact bit count, capped at rxCapacity bytes.
func (d *Device) TargetReceiveBits(rxCapacity int) ([]byte, int, error) {
	if d.mode != Target {
		return nil, 0, fmt.Errorf("nfc: target receive bits: device is not in target mode")
	}
	return d.handle.TargetReceiveBits(rxCapacity)
}

// Powerdown drives the chip into its low-power POWERDOWN/LOWVBAT state
// independently of the IDLE transition Close/Idle perform; only PN532
// observes it (§4.5).
func (d *Device) Powerdown() error {
	if err := d.handle.Powerdown(); err != nil {
		return fmt.Errorf("nfc: powerdown: %w", err)
	}
	return nil
}

// SupportedModulations reports the modulation types this device's
// firmware is documented to support.
func (d *Device) SupportedModulations() []ModulationType {
	return d.handle.SupportedModulations()
}

// SupportedBaudRates reports the baud rates available for mod on this
// device.
func (d *Device) SupportedBaudRates(mod ModulationType) []BaudRate {
	return d.handle.SupportedBaudRates(mod)
}

// Information returns a human-readable description of the device: its
// connection string and firmware identification.
func (d *Device) Information() string {
	return fmt.Sprintf("%s: %s", d.connstring, d.handle.Information())
}

// SetPropertyBool sets a boolean device/chip property (§4.1's
// device_set_property_bool).
func (d *Device) SetPropertyBool(prop Property, value bool) error {
	if err := d.handle.SetPropertyBool(prop, value); err != nil {
		return fmt.Errorf("nfc: set property: %w", err)
	}
	return nil
}

// SetPropertyInt sets an integer device/chip property (§4.1's
// device_set_property_int).
func (d *Device) SetPropertyInt(prop Property, value int) error {
	if err := d.handle.SetPropertyInt(prop, value); err != nil {
		return fmt.Errorf("nfc: set property: %w", err)
	}
	return nil
}

// LastError mirrors the most recent error the underlying chip engine
// observed, per the design note in §9.
func (d *Device) LastError() error {
	return d.handle.LastError()
}

func notInitiatorErr(mode OperatingMode) error {
	return fmt.Errorf("device is in mode %d, not INITIATOR", mode)
}
