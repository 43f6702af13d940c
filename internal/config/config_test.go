package config

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	return nil, fs.ErrNotExist
}

func TestDefaults(t *testing.T) {
	c := New(WithEnvPrefix(""))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := c.Block(); got.PageSize != 64*1024 || got.WindowSize != 4*1024 {
		t.Errorf("Block() = %+v, want 64KiB pages and 4KiB windows", got)
	}
	if got := c.Log(); got.Level != "info" || got.File != "" {
		t.Errorf("Log() = %+v, want info to stderr", got)
	}
	if got := c.Save(); got.ChunkSize != 64*1024 {
		t.Errorf("Save().ChunkSize = %d, want 65536", got.ChunkSize)
	}
	if got := c.Watch(); !got.Enabled || got.Debounce != 50*time.Millisecond {
		t.Errorf("Watch() = %+v", got)
	}
	if got := c.Script(); got.Timeout != 30*time.Second || got.CallStackSize != 256 {
		t.Errorf("Script() = %+v", got)
	}
}

func TestLayerPrecedence(t *testing.T) {
	t.Setenv("BSTEST_BLOCK_WINDOW_SIZE", "2048")
	t.Setenv("BSTEST_LOG_LEVEL", "warn")

	fsys := memFS{"/etc/bytestorm.toml": `
[block]
page_size = 1024
window_size = 512

[log]
level = "debug"

[script]
timeout = "5s"
`}
	c := New(WithFile("/etc/bytestorm.toml"), WithFileSystem(fsys), WithEnvPrefix("BSTEST_"))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := c.Set("log.level", "error"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if got := c.Block().PageSize; got != 1024 {
		t.Errorf("page_size = %d, want 1024 from file", got)
	}
	if got := c.Block().WindowSize; got != 2048 {
		t.Errorf("window_size = %d, want 2048 from env", got)
	}
	if got := c.Log().Level; got != "error" {
		t.Errorf("log.level = %q, want override 'error'", got)
	}
	if got := c.Script().Timeout; got != 5*time.Second {
		t.Errorf("script.timeout = %v, want 5s", got)
	}
	if got := c.Save().ChunkSize; got != 64*1024 {
		t.Errorf("chunk_size = %d, want default", got)
	}
}

func TestLoadYAML(t *testing.T) {
	fsys := memFS{"/b.yml": "watch:\n  enabled: false\n  debounce: 1s\n"}
	c := New(WithFile("/b.yml"), WithFileSystem(fsys), WithEnvPrefix(""))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Watch(); got.Enabled || got.Debounce != time.Second {
		t.Errorf("Watch() = %+v, want disabled with 1s debounce", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := New(WithFile("/nope.toml"), WithFileSystem(memFS{}), WithEnvPrefix(""))
	if err := c.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v, want nil for missing file", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{"parse", "/c.toml", "[block\n", nil},
		{"negative page size", "/c.toml", "[block]\npage_size = -1\n", ErrValidationFailed},
		{"unknown level", "/c.toml", "[log]\nlevel = \"loud\"\n", ErrValidationFailed},
		{"wrong type", "/c.toml", "[watch]\nenabled = \"maybe\"\n", ErrTypeMismatch},
		{"bad duration", "/c.yaml", "script:\n  timeout: soon\n", ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithFile(tt.file), WithFileSystem(memFS{tt.file: tt.content}), WithEnvPrefix(""))
			err := c.Load(context.Background())
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if tt.target == nil {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Errorf("Load() error = %v, want *ParseError", err)
				}
				return
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Load() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestGetters(t *testing.T) {
	c := New(WithEnvPrefix(""))

	if _, err := c.GetString("no.such"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("GetString(missing) error = %v, want ErrSettingNotFound", err)
	}
	if _, err := c.GetInt("log.level"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetInt(log.level) error = %v, want ErrTypeMismatch", err)
	}
	if err := c.Set("", 1); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidPath", err)
	}
	if err := c.Set("log.level.deep", 1); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set through a leaf error = %v, want ErrInvalidPath", err)
	}
}

func TestMergedIsCopy(t *testing.T) {
	c := New(WithEnvPrefix(""))
	m := c.Merged()
	m["block"].(map[string]any)["page_size"] = int64(1)
	if got := c.Block().PageSize; got != 64*1024 {
		t.Errorf("PageSize = %d after mutating Merged(), want unchanged", got)
	}
}
