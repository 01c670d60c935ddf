package driver

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	nfc "pn53x.dev"
	"pn53x.dev/transport/i2c"
)

func init() {
	nfc.RegisterDriver(i2cDriver{})
}

// i2cDriver opens a PN532 over its I2C interface. The specifier is a
// periph.io bus name (e.g. "/dev/i2c-1"), or empty for the platform
// default bus.
type i2cDriver struct{}

func (i2cDriver) Name() string { return "pn532_i2c" }

// Intrusive: opening the bus and polling the fixed PN532 address can
// disturb other I2C peripherals sharing the bus.
func (i2cDriver) Intrusive() bool { return true }

func (i2cDriver) Open(specifier string) (nfc.DeviceHandle, error) {
	tr, err := i2c.Open(specifier)
	if err != nil {
		return nil, fmt.Errorf("pn532_i2c: %w", err)
	}
	return newHandle("pn532_i2c", tr, nil)
}

func (i2cDriver) Scan() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("pn532_i2c: scan: %w", err)
	}
	var found []string
	for _, ref := range i2creg.All() {
		found = append(found, fmt.Sprintf("pn532_i2c:%s", ref.Name))
	}
	return found, nil
}
