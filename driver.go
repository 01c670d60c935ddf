package nfc

import (
	"fmt"
	"sort"
	"sync"
)

// DeviceHandle is the vtable a concrete driver implements to back a
// Device: open/close a connection and perform the operations public
// Device methods delegate to.
type DeviceHandle interface {
	Close() error
	Abort() error

	InitiatorInit() error
	InitiatorInitSecureElement(seMode int) error
	InitiatorPollTarget(mods []Modulation) (Target, error)
	InitiatorSelectPassiveTarget(mod Modulation, initData []byte) (Target, error)
	InitiatorSelectDepTarget(active bool, baud BaudRate, generalBytes []byte) (Target, error)
	InitiatorTransceiveBytes(tx []byte, rxCapacity int) ([]byte, error)
	InitiatorTransceiveBits(tx []byte, txBits int, rxCapacity int) ([]byte, int, error)
	InitiatorTargetIsPresent() error
	InitiatorDeselectTarget() error

	TargetInit(mods []Modulation) (Target, error)
	TargetSend(tx []byte) error
	TargetReceive(rxCapacity int) ([]byte, error)
	TargetSendBits(tx []byte, txBits int) error
	TargetReceiveBits(rxCapacity int) ([]byte, int, error)

	Idle() error
	Powerdown() error

	SetPropertyBool(prop Property, value bool) error
	SetPropertyInt(prop Property, value int) error

	SupportedModulations() []ModulationType
	SupportedBaudRates(mod ModulationType) []BaudRate
	Information() string

	LastError() error
}

// Driver opens a DeviceHandle for a connection string this driver claims,
// and scans for devices it could open when asked.
type Driver interface {
	// Name is the driver token used in connection strings (e.g.
	// "pn532_uart").
	Name() string
	// Open opens specifier (the part of the connection string after
	// "name:"), which may be empty to mean "first device found".
	Open(specifier string) (DeviceHandle, error)
	// Scan enumerates connection strings this driver's bus could open.
	// Scan on an INTRUSIVE driver may disturb devices that are not
	// PN53x-family readers; NOT_INTRUSIVE drivers merely enumerate.
	Scan() ([]string, error)
	// Intrusive reports whether Scan disturbs arbitrary bus devices.
	Intrusive() bool
}

var (
	registryMu sync.Mutex
	registry   = map[string]Driver{}
)

// RegisterDriver adds d to the process-wide driver registry, keyed by
// d.Name(). Driver packages call this from an init function so that
// importing them for side effect is enough to make them available to
// every Context.
func RegisterDriver(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

func lookupDriver(name string) (Driver, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	d, ok := registry[name]
	return d, ok
}

func registeredDriverNames() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Target is the modulation-specific descriptor and connection handle for
// a target found by InitiatorPollTarget/InitiatorSelectPassiveTarget/
// TargetInit.
type Target interface {
	Modulation() Modulation
	UID() []byte
}

func driverNotFoundError(name string) error {
	return fmt.Errorf("nfc: no registered driver %q: %w", name, EDEVNOTSUPP)
}
