package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path, size: int64(len(m.files[path]))}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
	size int64
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return f.size }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Time{} }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func getByPath(m map[string]any, section, key string) (any, bool) {
	s, ok := m[section].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := s[key]
	return v, ok
}

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bytestorm.toml", `
[block]
page_size = 8192

[log]
level = "debug"

[watch]
enabled = false
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/bytestorm.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "block", "page_size"); v != int64(8192) {
		t.Errorf("block.page_size = %v (%T), want 8192", v, v)
	}
	if v, _ := getByPath(config, "log", "level"); v != "debug" {
		t.Errorf("log.level = %v, want 'debug'", v)
	}
	if v, _ := getByPath(config, "watch", "enabled"); v != false {
		t.Errorf("watch.enabled = %v, want false", v)
	}
}

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bytestorm.yaml", `
block:
  page_size: 8192
  window_size: 1024
save:
  temp_dir: /tmp/bs
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/bytestorm.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "block", "page_size"); v != int64(8192) {
		t.Errorf("block.page_size = %v (%T), want int64 8192", v, v)
	}
	if v, _ := getByPath(config, "block", "window_size"); v != int64(1024) {
		t.Errorf("block.window_size = %v (%T), want int64 1024", v, v)
	}
	if v, _ := getByPath(config, "save", "temp_dir"); v != "/tmp/bs" {
		t.Errorf("save.temp_dir = %v, want '/tmp/bs'", v)
	}
}

func TestLoadNonExistent(t *testing.T) {
	memfs := NewMemFS()
	for _, path := range []string{"/missing.toml", "/missing.yaml"} {
		l, err := ForPath(memfs, path)
		if err != nil {
			t.Fatalf("ForPath(%q) error: %v", path, err)
		}
		config, err := l.Load()
		if err != nil {
			t.Errorf("Load(%q) error = %v, want nil", path, err)
		}
		if config != nil {
			t.Errorf("Load(%q) = %v, want nil", path, config)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[block\npage_size = 4\n")
	memfs.AddFile("/bad.yml", "block: [unclosed\n")

	for _, path := range []string{"/bad.toml", "/bad.yml"} {
		l, err := ForPath(memfs, path)
		if err != nil {
			t.Fatalf("ForPath(%q) error: %v", path, err)
		}
		_, err = l.Load()
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Load(%q) error = %v, want *ParseError", path, err)
		}
		if perr.Path != path {
			t.Errorf("ParseError.Path = %q, want %q", perr.Path, path)
		}
	}
}

func TestTOMLParseErrorPosition(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[block]\npage_size = = 4\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load error = %v, want *ParseError", err)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
}

func TestForPathUnsupported(t *testing.T) {
	_, err := ForPath(NewMemFS(), "/bytestorm.ini")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ForPath error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("BYTESTORM_BLOCK_PAGE_SIZE", "4096")
	t.Setenv("BYTESTORM_LOG_LEVEL", "warn")
	t.Setenv("BYTESTORM_WATCH_ENABLED", "yes")
	t.Setenv("BYTESTORM_WATCH_DEBOUNCE", "250ms")
	t.Setenv("BYTESTORM_NOSECTION", "ignored")
	t.Setenv("OTHER_LOG_LEVEL", "error")

	config, err := NewEnvLoader(DefaultEnvPrefix).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		section, key string
		want         any
	}{
		{"block", "page_size", int64(4096)},
		{"log", "level", "warn"},
		{"watch", "enabled", true},
		{"watch", "debounce", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		got, ok := getByPath(config, tt.section, tt.key)
		if !ok || got != tt.want {
			t.Errorf("%s.%s = %v (%T), want %v", tt.section, tt.key, got, got, tt.want)
		}
	}
	if _, ok := config["nosection"]; ok {
		t.Error("variable without a setting name should be ignored")
	}
	if _, ok := config["other"]; ok {
		t.Error("variable without the prefix should be ignored")
	}
}

func TestEnvLoader_Mapping(t *testing.T) {
	t.Setenv("BYTESTORM_TMP", "/scratch")

	l := NewEnvLoader(DefaultEnvPrefix)
	l.AddMapping("BYTESTORM_TMP", "save.temp_dir")
	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "save", "temp_dir"); v != "/scratch" {
		t.Errorf("save.temp_dir = %v, want '/scratch'", v)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"OFF", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"2s", 2 * time.Second},
		{"info", "info"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"block": map[string]any{"page_size": int64(65536), "window_size": int64(4096)},
		"log":   map[string]any{"level": "info"},
	}
	src := map[string]any{
		"block": map[string]any{"page_size": int64(1024)},
		"save":  map[string]any{"temp_dir": "/t"},
	}

	got := DeepMerge(Clone(dst), src)
	if v, _ := getByPath(got, "block", "page_size"); v != int64(1024) {
		t.Errorf("page_size = %v, want 1024", v)
	}
	if v, _ := getByPath(got, "block", "window_size"); v != int64(4096) {
		t.Errorf("window_size = %v, want 4096", v)
	}
	if v, _ := getByPath(got, "save", "temp_dir"); v != "/t" {
		t.Errorf("temp_dir = %v, want '/t'", v)
	}
	if v, _ := getByPath(dst, "block", "page_size"); v != int64(65536) {
		t.Errorf("Clone should isolate dst, page_size = %v", v)
	}
}
