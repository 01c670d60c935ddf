package driver

import (
	"fmt"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	nfc "pn53x.dev"
	"pn53x.dev/transport/spi"
)

func init() {
	nfc.RegisterDriver(spiDriver{})
}

// spiDriver opens a PN532 over its SPI interface. The specifier is a
// periph.io port name (e.g. "/dev/spidev0.0"), or empty for the platform
// default port.
type spiDriver struct{}

func (spiDriver) Name() string { return "pn532_spi" }

func (spiDriver) Intrusive() bool { return true }

func (spiDriver) Open(specifier string) (nfc.DeviceHandle, error) {
	tr, err := spi.Open(specifier)
	if err != nil {
		return nil, fmt.Errorf("pn532_spi: %w", err)
	}
	return newHandle("pn532_spi", tr, nil)
}

func (spiDriver) Scan() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("pn532_spi: scan: %w", err)
	}
	var found []string
	for _, ref := range spireg.All() {
		found = append(found, fmt.Sprintf("pn532_spi:%s", ref.Name))
	}
	return found, nil
}
