package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/sharedparams/internal/vfs"
)

func setupConfigFS(t *testing.T, content string) *vfs.MemFS {
	t.Helper()
	fsys := vfs.NewMemFS()
	if err := fsys.AddFile("/etc/spfedit/config.toml", []byte(content), 0o644); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	return fsys
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(vfs.NewMemFS(), "/nope.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	fsys := setupConfigFS(t, `
[logging]
level = "debug"
format = "json"

[merge]
group_name = "Imported"

[file]
encoding = "utf-8"
line_ending = "lf"

[recent]
limit = 5
filter_shared = false

[watch]
debounce = "1s"
`)

	cfg, err := Load(fsys, "/etc/spfedit/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Default()
	want.Logging = Logging{Level: "debug", Format: "json"}
	want.Merge.GroupName = "Imported"
	want.File = File{Encoding: "utf-8", LineEnding: "lf"}
	want.Recent.Limit = 5
	want.Recent.FilterShared = false
	want.Watch.Debounce = Duration{time.Second}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.TextInfo() != (vfs.TextInfo{Encoding: vfs.EncodingUTF8, LineEnding: vfs.LineEndingLF}) {
		t.Errorf("TextInfo() = %+v", cfg.TextInfo())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	fsys := setupConfigFS(t, `
[logging]
level = "warn"

[recent]
limit = 5
`)
	t.Setenv("SPFEDIT_LOG_LEVEL", "error")
	t.Setenv("SPFEDIT_RECENT_LIMIT", "3")
	t.Setenv("SPFEDIT_RECENT_FILTER_SHARED", "off")
	t.Setenv("SPFEDIT_WATCH_DEBOUNCE", "50ms")

	cfg, err := Load(fsys, "/etc/spfedit/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error", cfg.Logging.Level)
	}
	if cfg.Recent.Limit != 3 {
		t.Errorf("Recent.Limit = %d, want 3", cfg.Recent.Limit)
	}
	if cfg.Recent.FilterShared {
		t.Error("Recent.FilterShared should be false")
	}
	if cfg.Watch.Debounce.Duration != 50*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 50ms", cfg.Watch.Debounce)
	}
}

func TestLoad_ParseError(t *testing.T) {
	fsys := setupConfigFS(t, "[logging\nlevel = 1\n")

	_, err := Load(fsys, "/etc/spfedit/config.toml")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Line != 1 {
		t.Errorf("Line = %d, want 1", pe.Line)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	fsys := setupConfigFS(t, "[logging]\ncolour = \"red\"\n")

	_, err := Load(fsys, "/etc/spfedit/config.toml")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Key != "logging.colour" {
		t.Errorf("Key = %q, want logging.colour", ve.Key)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"group name", func(c *Config) { c.Merge.GroupName = "a\tb" }, "merge.group_name"},
		{"encoding", func(c *Config) { c.File.Encoding = "ebcdic" }, "file.encoding"},
		{"line ending", func(c *Config) { c.File.LineEnding = "mixed" }, "file.line_ending"},
		{"limit", func(c *Config) { c.Recent.Limit = 0 }, "recent.limit"},
		{"debounce", func(c *Config) { c.Watch.Debounce = Duration{-time.Second} }, "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var ve *ValidationError
			if err := cfg.Validate(); !errors.As(err, &ve) || ve.Key != tt.key {
				t.Errorf("Validate() = %v, want error for %s", err, tt.key)
			}
		})
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"logging": map[string]any{"level": "info", "format": "console"},
		"recent":  map[string]any{"limit": int64(10)},
	}
	src := map[string]any{
		"logging": map[string]any{"level": "debug"},
		"merge":   map[string]any{"group_name": "X"},
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"logging": map[string]any{"level": "debug", "format": "console"},
		"recent":  map[string]any{"limit": int64(10)},
		"merge":   map[string]any{"group_name": "X"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeepMerge mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnv(t *testing.T) {
	got := loadEnv([]string{
		"PATH=/usr/bin",
		"SPFEDIT_LOG_FORMAT=json",
		"SPFEDIT_MERGE_GROUP_NAME=Imported",
		"SPFEDIT_RECENT_LIMIT=7",
		"SPFEDIT_BOGUS",
	})
	want := map[string]any{
		"logging": map[string]any{"format": "json"},
		"merge":   map[string]any{"group_name": "Imported"},
		"recent":  map[string]any{"limit": int64(7)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loadEnv mismatch (-want +got):\n%s", diff)
	}
}
