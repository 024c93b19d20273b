// Package config loads the YAML configuration shared by the demo
// commands. Flags override whatever the file provides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SPI struct {
	// Port is the spireg port name, e.g. "SPI0.0". Empty selects the
	// first available port.
	Port string `yaml:"port"`
}

type Config struct {
	Pixels     int     `yaml:"pixels"`
	ClockMHz   int     `yaml:"clock_mhz"`
	FPS        int     `yaml:"fps"`
	Brightness float64 `yaml:"brightness"`
	Output     string  `yaml:"output"` // "spi" | "screen"
	Addr       string  `yaml:"addr"`

	SPI SPI `yaml:"spi,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Pixels:     8,
		ClockMHz:   48,
		FPS:        30,
		Brightness: 0.8,
		Output:     "screen",
		Addr:       ":8080",
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
