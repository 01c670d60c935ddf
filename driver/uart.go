package driver

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	nfc "pn53x.dev"
	"pn53x.dev/transport/uart"
)

func init() {
	nfc.RegisterDriver(uartDriver{variant: uart.VariantPN532, name: "pn532_uart"})
	nfc.RegisterDriver(uartDriver{variant: uart.VariantArygon, name: "arygon_uart"})
	nfc.RegisterDriver(uartDriver{variant: uart.VariantACR122S, name: "acr122s_uart"})
}

// uartDriver opens a PN53x-family reader over a serial device. Specifiers
// take the form "devpath[:baud]"; an empty specifier falls back to
// scanning for the first candidate TTY.
type uartDriver struct {
	variant uart.Variant
	name    string
}

func (d uartDriver) Name() string { return d.name }

// Intrusive: probing a serial device means writing a wakeup sequence and
// waiting for a reply, which can confuse an unrelated device on that port.
func (d uartDriver) Intrusive() bool { return true }

func (d uartDriver) Open(specifier string) (nfc.DeviceHandle, error) {
	dev, baud := specifier, uart.DefaultBaud(d.variant)
	if i := strings.LastIndex(specifier, ":"); i >= 0 {
		dev = specifier[:i]
		if b, err := strconv.Atoi(specifier[i+1:]); err == nil {
			baud = b
		}
	}
	if dev == "" {
		candidates, err := d.Scan()
		if err != nil || len(candidates) == 0 {
			return nil, fmt.Errorf("%s: no serial device found", d.name)
		}
		_, dev, _ = strings.Cut(candidates[0], ":")
	}
	tr, err := uart.Open(dev, baud, d.variant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	return newHandle(d.name, tr, nil)
}

func (d uartDriver) Scan() ([]string, error) {
	var candidates []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/tty.usbserial*"} {
		matches, _ := filepath.Glob(pattern)
		candidates = append(candidates, matches...)
	}
	found := make([]string, 0, len(candidates))
	for _, c := range candidates {
		found = append(found, fmt.Sprintf("%s:%s", d.name, c))
	}
	return found, nil
}
