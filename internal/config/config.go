// Package config holds spfedit settings.
//
// Settings come from three layers, lowest priority first: built-in
// defaults, a TOML file, and SPFEDIT_* environment variables. The file
// and environment are read into nested maps, merged, and decoded over the
// defaults.
//
//	[logging]
//	level = "info"          # debug, info, warn, error
//	format = "console"      # console, json
//
//	[merge]
//	group_name = "Merged Parameters"
//
//	[file]
//	encoding = "utf-16le"   # for new files
//	line_ending = "crlf"
//
//	[recent]
//	limit = 10
//	filter_shared = true
//	path = "~/.config/spfedit/recent.yaml"
//
//	[watch]
//	debounce = "200ms"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/sharedparams/internal/vfs"
)

// AppName names the configuration directory.
const AppName = "spfedit"

// Config is the complete set of settings.
type Config struct {
	Logging Logging `toml:"logging"`
	Merge   Merge   `toml:"merge"`
	File    File    `toml:"file"`
	Recent  Recent  `toml:"recent"`
	Watch   Watch   `toml:"watch"`
}

// Logging configures the logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Merge configures the merge engine.
type Merge struct {
	GroupName string `toml:"group_name"`
}

// File configures the text form of newly created definition files.
type File struct {
	Encoding   string `toml:"encoding"`
	LineEnding string `toml:"line_ending"`
}

// Recent configures the recent files list.
type Recent struct {
	Limit        int    `toml:"limit"`
	FilterShared bool   `toml:"filter_shared"`
	Path         string `toml:"path"`
}

// Watch configures external change detection.
type Watch struct {
	Debounce Duration `toml:"debounce"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info", Format: "console"},
		Merge:   Merge{GroupName: "Merged Parameters"},
		File: File{
			Encoding:   string(vfs.EncodingUTF16LE),
			LineEnding: string(vfs.LineEndingCRLF),
		},
		Recent: Recent{
			Limit:        10,
			FilterShared: true,
			Path:         filepath.Join(DefaultDir(), "recent.yaml"),
		},
		Watch: Watch{Debounce: Duration{200 * time.Millisecond}},
	}
}

// DefaultDir returns the directory holding config.toml and recent.yaml.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks every setting and returns the first invalid one.
func (c *Config) Validate() error {
	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return &ValidationError{Key: "logging.level", Value: c.Logging.Level, Msg: "must be debug, info, warn or error"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return &ValidationError{Key: "logging.format", Value: c.Logging.Format, Msg: "must be console or json"}
	}
	if strings.ContainsAny(c.Merge.GroupName, "\t\r\n") {
		return &ValidationError{Key: "merge.group_name", Value: c.Merge.GroupName, Msg: "must not contain tabs or line breaks"}
	}
	if _, err := vfs.ParseEncoding(c.File.Encoding); err != nil {
		return &ValidationError{Key: "file.encoding", Value: c.File.Encoding, Msg: err.Error()}
	}
	if _, err := vfs.ParseLineEnding(c.File.LineEnding); err != nil {
		return &ValidationError{Key: "file.line_ending", Value: c.File.LineEnding, Msg: err.Error()}
	}
	if c.Recent.Limit <= 0 {
		return &ValidationError{Key: "recent.limit", Value: fmt.Sprint(c.Recent.Limit), Msg: "must be positive"}
	}
	if c.Watch.Debounce.Duration < 0 {
		return &ValidationError{Key: "watch.debounce", Value: c.Watch.Debounce.String(), Msg: "must not be negative"}
	}
	return nil
}

// TextInfo returns the encoding and line ending for new files. Call
// Validate first; invalid values fall back to UTF-16LE and CRLF.
func (c *Config) TextInfo() vfs.TextInfo {
	info := vfs.TextInfo{Encoding: vfs.EncodingUTF16LE, LineEnding: vfs.LineEndingCRLF}
	if enc, err := vfs.ParseEncoding(c.File.Encoding); err == nil {
		info.Encoding = enc
	}
	if le, err := vfs.ParseLineEnding(c.File.LineEnding); err == nil {
		info.LineEnding = le
	}
	return info
}
