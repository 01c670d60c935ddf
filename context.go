package nfc

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Context is a library instance: it owns the set of driver names this
// process permits, process-wide logging, and configuration loaded from
// disk, per §4.2/§9's note that global state becomes an explicit object.
type Context struct {
	logger *log.Logger
	config Config

	allowedDrivers map[string]bool // nil means "all registered drivers".
}

// NewContext creates a Context with default configuration: all registered
// drivers allowed, logging to stderr.
func NewContext() *Context {
	return &Context{
		logger: log.New(os.Stderr, "nfc: ", log.LstdFlags),
	}
}

// SetLogger overrides where the Context logs to. Devices it opens do not
// use this logger; each chip engine logs through its own.
func (c *Context) SetLogger(l *log.Logger) { c.logger = l }

func (c *Context) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// ApplyConfig restricts driver use and supplies explicit connection
// strings per the loaded Config (§6.3/§10).
func (c *Context) ApplyConfig(cfg Config) {
	c.config = cfg
	if len(cfg.AllowedDrivers) > 0 {
		c.allowedDrivers = make(map[string]bool, len(cfg.AllowedDrivers))
		for _, d := range cfg.AllowedDrivers {
			c.allowedDrivers[d] = true
		}
	} else {
		c.allowedDrivers = nil
	}
}

func (c *Context) driverAllowed(name string) bool {
	return c.allowedDrivers == nil || c.allowedDrivers[name]
}

// ListDevices enumerates connection strings across every allowed,
// registered driver. Drivers marked Intrusive are skipped unless the
// loaded Config explicitly permits intrusive scanning.
func (c *Context) ListDevices() ([]string, error) {
	var all []string
	for _, name := range registeredDriverNames() {
		if !c.driverAllowed(name) {
			continue
		}
		d, _ := lookupDriver(name)
		if d.Intrusive() && !c.config.AllowIntrusiveScan {
			continue
		}
		conns, err := d.Scan()
		if err != nil {
			c.logf("scan %s: %v", name, err)
			continue
		}
		all = append(all, conns...)
	}
	all = append(all, c.config.ExplicitConnstrings...)
	return all, nil
}

// Open opens the device named by connstring, of the form
// "driver[:specifier[:baud]]" (§4.2/§6.3). An empty driver segment is
// invalid; a missing specifier means "first device the driver finds".
func (c *Context) Open(connstring string) (*Device, error) {
	name, specifier, err := parseConnstring(connstring)
	if err != nil {
		return nil, fmt.Errorf("nfc: open %q: %w", connstring, err)
	}
	if !c.driverAllowed(name) {
		return nil, fmt.Errorf("nfc: open %q: driver %q disabled by configuration", connstring, name)
	}
	d, ok := lookupDriver(name)
	if !ok {
		return nil, fmt.Errorf("nfc: open %q: %w", connstring, driverNotFoundError(name))
	}
	handle, err := d.Open(specifier)
	if err != nil {
		return nil, fmt.Errorf("nfc: open %q: %w", connstring, err)
	}
	return newDevice(c, connstring, handle), nil
}

// parseConnstring splits "driver:specifier[:baud]" into the driver name
// and everything after the first colon (specifier and baud, left for the
// driver itself to interpret).
func parseConnstring(s string) (name, rest string, err error) {
	parts := strings.SplitN(s, ":", 2)
	name = parts[0]
	if name == "" {
		return "", "", fmt.Errorf("missing driver name")
	}
	if len(parts) == 2 {
		rest = parts[1]
	}
	return name, rest, nil
}
