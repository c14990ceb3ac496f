package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed holds bootstrap data applied once at startup.
type Seed struct {
	Thresholds *SeedThresholds `yaml:"thresholds"`
	RatePerKwh float64         `yaml:"rate_per_kwh"`
	Devices    []SeedDevice    `yaml:"devices"`
}

type SeedThresholds struct {
	Overvoltage          float64 `yaml:"overvoltage"`
	Undervoltage         float64 `yaml:"undervoltage"`
	Overcurrent          float64 `yaml:"overcurrent"`
	HighPower            float64 `yaml:"high_power"`
	DeviceOfflineSeconds int     `yaml:"device_offline_seconds"`
}

// SeedDevice registers a device with a known token, for development rigs.
type SeedDevice struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Token    string `yaml:"token"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if err := seed.validate(); err != nil {
		return nil, err
	}

	return &seed, nil
}

func (s *Seed) validate() error {
	if s.RatePerKwh < 0 {
		return fmt.Errorf("seed rate_per_kwh cannot be negative")
	}

	if t := s.Thresholds; t != nil && t.Undervoltage >= t.Overvoltage {
		return fmt.Errorf("seed undervoltage (%v) must be below overvoltage (%v)", t.Undervoltage, t.Overvoltage)
	}

	seen := make(map[string]bool)
	for i, d := range s.Devices {
		if d.Name == "" || d.Token == "" {
			return fmt.Errorf("seed device %d needs a name and a token", i)
		}
		if seen[d.Token] {
			return fmt.Errorf("seed device %q reuses a token", d.Name)
		}
		seen[d.Token] = true
	}

	return nil
}
