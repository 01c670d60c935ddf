package nfc

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Config is the on-disk configuration a Context optionally loads (§10).
// Loading is always explicit; there is no implicit file search.
type Config struct {
	// AllowIntrusiveScan permits Context.ListDevices to run Scan on
	// drivers that report Intrusive() true (e.g. probing arbitrary
	// serial devices).
	AllowIntrusiveScan bool `cbor:"1,keyasint,omitempty"`
	// AllowedDrivers restricts driver use to this set; empty means all
	// registered drivers are allowed.
	AllowedDrivers []string `cbor:"2,keyasint,omitempty"`
	// ExplicitConnstrings are appended to every ListDevices result,
	// bypassing Scan entirely (e.g. for devices behind a path Scan
	// cannot enumerate).
	ExplicitConnstrings []string `cbor:"3,keyasint,omitempty"`
	// LogPath, if non-empty, is where Context directs its *log.Logger
	// instead of stderr.
	LogPath string `cbor:"4,keyasint,omitempty"`
}

// LoadConfig reads and decodes a CBOR-encoded Config from path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("nfc: load config %q: %w", path, err)
	}
	if err := cbor.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("nfc: decode config %q: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig CBOR-encodes cfg and writes it to path.
func SaveConfig(path string, cfg Config) error {
	data, err := cbor.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("nfc: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("nfc: save config %q: %w", path, err)
	}
	return nil
}

// Load loads cfg from path and applies it to c, opening the configured
// log destination if LogPath is set.
func (c *Context) Load(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("nfc: open log destination %q: %w", cfg.LogPath, err)
		}
		c.logger.SetOutput(f)
	}
	c.ApplyConfig(cfg)
	return nil
}
