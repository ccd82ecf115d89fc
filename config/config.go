// Package config loads the dashboard's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/w1xm/dish_interface/logbuf"
)

// Config is the whole file. Zero values are replaced by defaults.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Poll     PollConfig     `yaml:"poll"`
	LogBuf   LogBufConfig   `yaml:"log_buffer"`
	Skyplane SkyplaneConfig `yaml:"skyplane"`
	Server   ServerConfig   `yaml:"server"`
	Rotctld  RotctldConfig  `yaml:"rotctld"`
	Serial   SerialConfig   `yaml:"serial"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DeviceConfig struct {
	// URL is the device's base URL.
	URL string `yaml:"url"`
	// CommandTimeoutMS bounds each command request; 0 means none.
	CommandTimeoutMS int `yaml:"command_timeout_ms"`
}

type PollConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	// TimeoutMS bounds each poll; 0 means a poll may hang until shutdown.
	TimeoutMS int `yaml:"timeout_ms"`
}

type LogBufConfig struct {
	Capacity int `yaml:"capacity"`
}

type SkyplaneConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Margin float64 `yaml:"margin"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir"`
}

type RotctldConfig struct {
	// Listen is empty to disable the bridge.
	Listen string `yaml:"listen"`
}

type SerialConfig struct {
	// Port is empty to leave the serial console alone.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type LoggingConfig struct {
	// File, if set, receives the log instead of stderr, rotated by size.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Debug      bool   `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Device:   DeviceConfig{URL: "http://discoverydish.local"},
		Poll:     PollConfig{IntervalMS: 250},
		LogBuf:   LogBufConfig{Capacity: logbuf.DefaultCapacity},
		Skyplane: SkyplaneConfig{Width: 400, Height: 400, Margin: 20},
		Server:   ServerConfig{Listen: "127.0.0.1:8502", StaticDir: "static"},
		Serial:   SerialConfig{Baud: 115200},
		Logging:  LoggingConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// LoadFile reads path over the defaults. An empty path returns the
// defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := DefaultConfig()
	c.Device.URL = strings.TrimRight(strings.TrimSpace(c.Device.URL), "/")
	if c.Device.URL == "" {
		c.Device.URL = def.Device.URL
	}
	if c.Poll.IntervalMS <= 0 {
		c.Poll.IntervalMS = def.Poll.IntervalMS
	}
	if c.LogBuf.Capacity <= 0 {
		c.LogBuf.Capacity = def.LogBuf.Capacity
	}
	if c.Skyplane.Width <= 0 {
		c.Skyplane.Width = def.Skyplane.Width
	}
	if c.Skyplane.Height <= 0 {
		c.Skyplane.Height = def.Skyplane.Height
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = def.Server.StaticDir
	}
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = def.Serial.Baud
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Device.URL)
	if err != nil {
		errs = append(errs, fmt.Errorf("device.url: %w", err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("device.url %q: want http://host", c.Device.URL))
	}
	if c.Device.CommandTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("device.command_timeout_ms %d: negative", c.Device.CommandTimeoutMS))
	}
	if c.Poll.IntervalMS < 10 {
		errs = append(errs, fmt.Errorf("poll.interval_ms %d: below 10", c.Poll.IntervalMS))
	}
	if c.Poll.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("poll.timeout_ms %d: negative", c.Poll.TimeoutMS))
	}
	if c.LogBuf.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("log_buffer.capacity %d: must be positive", c.LogBuf.Capacity))
	}
	if c.Skyplane.Margin < 0 || 2*c.Skyplane.Margin >= float64(min(c.Skyplane.Width, c.Skyplane.Height)) {
		errs = append(errs, fmt.Errorf("skyplane.margin %v: leaves no room in %dx%d", c.Skyplane.Margin, c.Skyplane.Width, c.Skyplane.Height))
	}
	return errors.Join(errs...)
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMS) * time.Millisecond
}

func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.Poll.TimeoutMS) * time.Millisecond
}

func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.Device.CommandTimeoutMS) * time.Millisecond
}
