package driver

import (
	"fmt"
	"strings"

	"github.com/ebfe/scard"

	nfc "pn53x.dev"
	"pn53x.dev/transport/pcsc"
)

func init() {
	nfc.RegisterDriver(pcscDriver{})
}

// pcscDriver opens an ACR122-family reader through the platform's PC/SC
// service. The specifier is the PC/SC reader name as scard.ListReaders
// reports it, or empty for the first reader found.
type pcscDriver struct{}

func (pcscDriver) Name() string { return "acr122_pcsc" }

func (pcscDriver) Intrusive() bool { return false } // PC/SC reader enumeration is a service call, not a bus probe.

func (pcscDriver) Open(specifier string) (nfc.DeviceHandle, error) {
	reader := specifier
	if reader == "" {
		readers, err := pcscDriver{}.Scan()
		if err != nil || len(readers) == 0 {
			return nil, fmt.Errorf("acr122_pcsc: no PC/SC reader found")
		}
		_, reader, _ = strings.Cut(readers[0], ":")
	}
	tr, err := pcsc.Open(reader)
	if err != nil {
		return nil, fmt.Errorf("acr122_pcsc: %w", err)
	}
	return newHandle("acr122_pcsc", tr, nil)
}

func (pcscDriver) Scan() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("acr122_pcsc: scan: %w", err)
	}
	defer ctx.Release()
	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("acr122_pcsc: scan: %w", err)
	}
	found := make([]string, 0, len(readers))
	for _, r := range readers {
		found = append(found, fmt.Sprintf("acr122_pcsc:%s", r))
	}
	return found, nil
}
