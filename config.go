package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"golux/channel"
	"golux/indicator"
	"golux/reader"
)

// Config is the main configuration structure for golux.
type Config struct {
	// Lighting-control server connection settings
	Channel channel.Config `yaml:"channel"`

	// Indicator driver configuration
	Indicator indicator.Config `yaml:"indicator"`

	// Reader bindings, in slot order
	Readers []ReaderBinding `yaml:"readers"`

	// Known tag registry
	Tags []TagMapping `yaml:"tags"`

	// General settings
	ClientID      string `yaml:"client_id"`
	Header        string `yaml:"header"`
	MinReaders    int    `yaml:"min_readers"`
	PollTimeoutMS int    `yaml:"poll_timeout_ms"`
	CycleMS       int    `yaml:"cycle_ms"`

	Log LogConfig `yaml:"log"`
}

// ReaderBinding binds one physical reader to a slot and an indicator output.
// Slot order is the order of appearance.
type ReaderBinding struct {
	Reader    reader.Config `yaml:",inline"`
	Indicator int           `yaml:"indicator"`
}

// TagMapping maps a bare tag UID (hex) to a trigger definition.
type TagMapping struct {
	UID     string `yaml:"uid"`
	Pattern string `yaml:"pattern"`
	OneShot bool   `yaml:"one_shot"`
	Color   string `yaml:"color"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Channel.Host == "" {
		return fmt.Errorf("channel.host missing in config")
	}
	if len(c.Readers) == 0 {
		return fmt.Errorf("no readers configured")
	}
	for i, t := range c.Tags {
		if t.UID == "" || t.Pattern == "" {
			return fmt.Errorf("tags[%d]: uid and pattern are required", i)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "golux"
	}
	if c.Header == "" {
		c.Header = defaultHeader
	}
	if c.MinReaders == 0 {
		c.MinReaders = 1
	}
	if c.PollTimeoutMS == 0 {
		c.PollTimeoutMS = 100
	}
	if c.CycleMS == 0 {
		c.CycleMS = 200
	}
}
