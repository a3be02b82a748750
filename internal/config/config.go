package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPort            = 9123
	DefaultUAPIPath        = "uapi"
	DefaultCommandTimeout  = 10 * time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Duration is a custom type that can unmarshal from JSON and TOML strings
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface, used by the TOML decoder
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}
	d.Duration = duration
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

type Config struct {
	Server struct {
		// ListenAddress is the host part of the bind address. Empty binds all interfaces.
		ListenAddress   string   `json:"listen_address" toml:"listen_address"`
		Port            int      `json:"port" toml:"port"`
		ReadTimeout     Duration `json:"read_timeout" toml:"read_timeout"`
		WriteTimeout    Duration `json:"write_timeout" toml:"write_timeout"`
		ShutdownTimeout Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	} `json:"server" toml:"server"`

	UAPI struct {
		Path           string   `json:"path" toml:"path"`
		CommandTimeout Duration `json:"command_timeout" toml:"command_timeout"`
	} `json:"uapi" toml:"uapi"`

	Logging struct {
		Level  string `json:"level" toml:"level"`
		Format string `json:"format" toml:"format"`
	} `json:"logging" toml:"logging"`
}

// New returns a configuration populated with defaults
func New() *Config {
	config := &Config{}
	config.Server.Port = DefaultPort
	config.Server.ReadTimeout = Duration{DefaultReadTimeout}
	config.Server.WriteTimeout = Duration{DefaultWriteTimeout}
	config.Server.ShutdownTimeout = Duration{DefaultShutdownTimeout}
	config.UAPI.Path = DefaultUAPIPath
	config.UAPI.CommandTimeout = Duration{DefaultCommandTimeout}
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// Load reads a configuration file, picking the decoder from the file extension.
// Files ending in .toml are decoded as TOML, everything else as JSON.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadFromTOML(path)
	default:
		return LoadFromJSON(path)
	}
}

// LoadFromJSON loads configuration from a JSON file
func LoadFromJSON(path string) (*Config, error) {
	// Start from defaults so that a partial file only overrides what it names
	config := New()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields() // Fail on unknown fields

	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromTOML loads configuration from a TOML file
func LoadFromTOML(path string) (*Config, error) {
	config := New()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the configuration can be used to start the exporter
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.UAPI.Path) == "" {
		return fmt.Errorf("uapi.path must not be empty")
	}
	if c.UAPI.CommandTimeout.Duration <= 0 {
		return fmt.Errorf("uapi.command_timeout must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Addr returns the address the HTTP server binds to
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.ListenAddress, strconv.Itoa(c.Server.Port))
}
