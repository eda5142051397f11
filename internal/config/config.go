// Package config holds the plugin options passed from the Lua side.
// The schema is an explicit struct: unknown keys are detected at decode time
// against the known field set and reported back, never silently dropped.
package config

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultPort    = 5500
	DefaultAddress = "127.0.0.1"
)

// Config is the recognized option set for the preview host.
type Config struct {
	// Port the preview server binds to. 0 means unset; Decode applies the
	// default.
	Port int `mapstructure:"port"`
	// Address the preview server binds to.
	Address string `mapstructure:"address"`
	// Browser command used to open the preview, empty for the OS default.
	Browser string `mapstructure:"browser"`
	// SyncScroll mirrors the editor cursor into the browser.
	SyncScroll bool `mapstructure:"sync_scroll"`
	// Pickers lists optional picker modules the doctor probes for.
	Pickers []string `mapstructure:"pickers"`
	// AutoKill stops the server when the last markdown buffer closes.
	AutoKill bool `mapstructure:"autokill"`
}

// Default returns the configuration used when setup was never called.
func Default() *Config {
	return &Config{
		Port:       DefaultPort,
		Address:    DefaultAddress,
		SyncScroll: true,
	}
}

// Decode builds a Config from the raw options table. Unknown keys are
// returned sorted so callers can surface them as warnings; they never fail
// the decode. An out-of-range port does.
func Decode(raw map[string]interface{}) (*Config, []string, error) {
	cfg := Default()

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, nil, fmt.Errorf("decode options: %w", err)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, nil, fmt.Errorf("port %d out of range 0-65535", cfg.Port)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}

	unknown := append([]string(nil), md.Unused...)
	sort.Strings(unknown)
	return cfg, unknown, nil
}

// Addr returns the host:port the server should bind to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
