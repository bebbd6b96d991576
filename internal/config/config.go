// Package config loads the dtb tool settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxValueWidth bounds rendered property values in text output.
const DefaultMaxValueWidth = 96

// Format selects how a tree is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

var ErrFormat = errors.New("unknown output format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatYAML, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// Config is the contents of the settings file.
type Config struct {
	Version int    `yaml:"version"`
	Output  Output `yaml:"output"`
	Log     Log    `yaml:"log"`
}

type Output struct {
	Format Format `yaml:"format"`
	// MaxValueWidth truncates long values in text output. Zero picks the
	// default; negative disables truncation.
	MaxValueWidth int `yaml:"maxValueWidth,omitempty"`
	// Properties includes leftover raw properties in dumps.
	Properties *bool `yaml:"properties,omitempty"`
}

type Log struct {
	Level string `yaml:"level"`
}

func (c *Config) normalize() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatText
	}
	if c.Output.MaxValueWidth == 0 {
		c.Output.MaxValueWidth = DefaultMaxValueWidth
	}
	if c.Output.Properties == nil {
		on := true
		c.Output.Properties = &on
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

// Default returns the settings used when no file is given.
func Default() Config {
	var c Config
	c.normalize()
	return c
}

// Load reads a settings file. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Decode reads settings from r and validates them.
func Decode(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	c.normalize()
	f, err := ParseFormat(string(c.Output.Format))
	if err != nil {
		return Config{}, err
	}
	c.Output.Format = f
	if _, err := c.SlogLevel(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Write encodes c as YAML.
func (c Config) Write(w io.Writer) error {
	c.normalize()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// ShowProperties reports whether dumps include raw leftover properties.
func (c Config) ShowProperties() bool {
	return c.Output.Properties == nil || *c.Output.Properties
}

// SlogLevel parses Log.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
