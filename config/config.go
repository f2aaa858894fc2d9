package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sergev/i2ctap/macro"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env"
)

//go:embed i2ctap.toml
var defaultConfigData []byte

// Global state for the selected profile.
var (
	ProfileName string
	ProbeName   string
	SDAPin      string
	SCLPin      string
	BusNumber   int
	Port        string
	StorePath   string
	Macros      map[string]macro.Macro
)

// File represents the entire TOML configuration structure.
type File struct {
	Default string    `toml:"default"`
	Profile []Profile `toml:"profile"`
	Macro   []Macro   `toml:"macro"`
}

// Profile names a sampler backend, its line assignments, and the
// kernel I2C bus used for replay.
type Profile struct {
	Name  string `toml:"name"`
	Probe string `toml:"probe"`
	SDA   string `toml:"sda"`
	SCL   string `toml:"scl"`
	Bus   int    `toml:"bus"`
	Port  string `toml:"port"`
}

// Macro is a pre-recorded write sequence.
type Macro struct {
	Name string `toml:"name"`
	Step []Step `toml:"step"`
}

// Step is one timed write of a configured macro.
type Step struct {
	Addr    int   `toml:"addr"`
	Data    []int `toml:"data"`
	DelayMs int   `toml:"delay_ms"`
}

// overrides are environment-variable overrides applied after the file.
type overrides struct {
	Profile string `env:"I2CTAP_PROFILE"`
	Port    string `env:"I2CTAP_PORT"`
	Store   string `env:"I2CTAP_STORE"`
}

// configPath determines the config file path based on the operating system.
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "i2ctap")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".i2ctap"), nil
}

// Initialize loads and validates the configuration file.
// If the config file doesn't exist, it creates it from the embedded default.
func Initialize() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0o644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config at %s: %w", path, err)
	}

	var ov overrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if err := apply(data, ov); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// apply parses the TOML data, picks the profile (env override wins over
// the file's default), validates it, and fills the package globals.
func apply(data []byte, ov overrides) error {
	var conf File
	if err := toml.Unmarshal(data, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}

	name := conf.Default
	if ov.Profile != "" {
		name = ov.Profile
	}
	if name == "" {
		return errors.New("`default` key is missing or empty")
	}

	var found *Profile
	for i := range conf.Profile {
		if conf.Profile[i].Name == name {
			found = &conf.Profile[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("profile %q not found in profile array", name)
	}

	if found.Probe == "" {
		return fmt.Errorf("profile %q has no probe backend", name)
	}
	if found.SDA == "" || found.SCL == "" {
		return fmt.Errorf("profile %q is missing an SDA or SCL pin assignment", name)
	}
	if found.Bus < 0 {
		return fmt.Errorf("profile %q has invalid bus: %d", name, found.Bus)
	}

	macros := make(map[string]macro.Macro, len(conf.Macro))
	for _, m := range conf.Macro {
		if m.Name == "" {
			return errors.New("macro with empty name")
		}
		converted := macro.Macro{Name: m.Name}
		for i, step := range m.Step {
			if step.Addr < 0 || step.Addr > 0x7F {
				return fmt.Errorf("macro %q step %d: address 0x%02X out of 7-bit range", m.Name, i, step.Addr)
			}
			if len(step.Data) == 0 {
				return fmt.Errorf("macro %q step %d: empty data", m.Name, i)
			}
			if step.DelayMs < 0 {
				return fmt.Errorf("macro %q step %d: negative delay", m.Name, i)
			}
			payload := make([]byte, len(step.Data))
			for j, v := range step.Data {
				if v < 0 || v > 0xFF {
					return fmt.Errorf("macro %q step %d: data byte %d out of range", m.Name, i, v)
				}
				payload[j] = byte(v)
			}
			converted.Steps = append(converted.Steps, macro.Step{
				Addr:       byte(step.Addr),
				Data:       payload,
				DelayAfter: time.Duration(step.DelayMs) * time.Millisecond,
			})
		}
		macros[m.Name] = converted
	}

	ProfileName = name
	ProbeName = found.Probe
	SDAPin = found.SDA
	SCLPin = found.SCL
	BusNumber = found.Bus
	Port = found.Port
	if ov.Port != "" {
		Port = ov.Port
	}
	Macros = macros

	StorePath = ov.Store
	if StorePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine user home directory: %w", err)
		}
		StorePath = filepath.Join(home, ".i2ctap-macros.db")
	}
	return nil
}
