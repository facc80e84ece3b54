package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/sharedparams/internal/vfs"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "SPFEDIT_"

// envMapping maps environment variables whose names do not follow the
// SECTION_KEY pattern.
var envMapping = map[string]string{
	"SPFEDIT_LOG_LEVEL":  "logging.level",
	"SPFEDIT_LOG_FORMAT": "logging.format",
}

// Load builds the configuration from defaults, the TOML file at path and
// the environment. A missing file is not an error. The result is validated.
func Load(fsys vfs.VFS, path string) (*Config, error) {
	fileLayer, err := loadTOML(fsys, path)
	if err != nil {
		return nil, err
	}

	merged := DeepMerge(fileLayer, loadEnv(os.Environ()))

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTOML reads a TOML file into a nested map.
func loadTOML(fsys vfs.VFS, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, newParseError(path, err)
	}
	return m, nil
}

// loadEnv converts SPFEDIT_SECTION_KEY=value pairs into a nested map.
// SPFEDIT_RECENT_FILTER_SHARED becomes recent.filter_shared.
func loadEnv(environ []string) map[string]any {
	m := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, ok := envMapping[name]
		if !ok {
			path = envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(m, path, parseEnvValue(value))
	}
	return m
}

func envToPath(name string) string {
	section, key, ok := strings.Cut(strings.TrimPrefix(name, EnvPrefix), "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return strings.ToLower(section) + "." + strings.ToLower(key)
}

// parseEnvValue types an environment value so it decodes into int and bool
// settings. Durations and everything else stay strings.
func parseEnvValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	return s
}

func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// decode applies a merged settings map on top of cfg. Unknown keys are an
// error so typos in the file or environment do not go unnoticed.
func decode(m map[string]any, cfg *Config) error {
	if len(m) == 0 {
		return nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return &ValidationError{Key: unknownKey(strict), Msg: "unknown setting"}
		}
		return &ParseError{Path: "<merged>", Message: err.Error(), Err: err}
	}
	return nil
}

func unknownKey(err *toml.StrictMissingError) string {
	if len(err.Errors) == 0 {
		return ""
	}
	return strings.Join(err.Errors[0].Key(), ".")
}

// DeepMerge recursively merges src into dst. Values in src win; nested
// maps are merged.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}
