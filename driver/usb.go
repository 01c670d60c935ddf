package driver

import (
	"fmt"

	"github.com/google/gousb"

	nfc "pn53x.dev"
	"pn53x.dev/transport/usb"
)

func init() {
	nfc.RegisterDriver(usbDriver{})
}

// usbDriver opens any of the USB-bulk PN53x-family readers §6.2 catalogs.
// Specifiers take the form "vid:pid" in hex, or empty for "first found".
type usbDriver struct{}

func (usbDriver) Name() string { return "pn53x_usb" }

func (usbDriver) Intrusive() bool { return false } // USB enumeration is a simple device list.

func (usbDriver) Open(specifier string) (nfc.DeviceHandle, error) {
	var vid, pid gousb.ID
	if specifier != "" {
		var v, p uint
		if _, err := fmt.Sscanf(specifier, "%x:%x", &v, &p); err != nil {
			return nil, fmt.Errorf("pn53x_usb: bad specifier %q: %w", specifier, err)
		}
		vid, pid = gousb.ID(v), gousb.ID(p)
	}
	tr, err := usb.Open(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("pn53x_usb: %w", err)
	}
	return newHandle("pn53x_usb", tr, nil)
}

func (usbDriver) Scan() ([]string, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	var found []string
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, c := range usb.SupportedDevices {
			if desc.Vendor == c.Vendor && desc.Product == c.Product {
				found = append(found, fmt.Sprintf("pn53x_usb:%04x:%04x", uint16(c.Vendor), uint16(c.Product)))
			}
		}
		return false // never actually open; we only want the descriptor match.
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("pn53x_usb: scan: %w", err)
	}
	return found, nil
}
