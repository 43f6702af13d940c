package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/bytestorm/internal/config/loader"
	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/save"
)

// Config provides layered access to bytestorm settings.
type Config struct {
	mu sync.RWMutex

	fs        loader.FileSystem
	path      string
	envPrefix string

	// Layers, lowest priority first.
	defaults  map[string]any
	file      map[string]any
	env       map[string]any
	overrides map[string]any

	merged map[string]any
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the configuration file. The format follows the extension.
func WithFile(path string) Option {
	return func(c *Config) {
		c.path = path
	}
}

// WithFileSystem sets the file system used to read the configuration file.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables environment overrides.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// New creates a Config holding only the built-in defaults.
func New(opts ...Option) *Config {
	c := &Config{
		fs:        loader.DefaultFS(),
		envPrefix: loader.DefaultEnvPrefix,
		defaults:  defaultConfig(),
		overrides: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.remerge()
	return c
}

// Load reads the configuration file and environment, then validates the
// merged result. A missing file is not an error.
func (c *Config) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var file map[string]any
	if c.path != "" {
		l, err := loader.ForPath(c.fs, c.path)
		if err != nil {
			return err
		}
		if file, err = l.Load(); err != nil {
			return err
		}
	}

	var env map[string]any
	if c.envPrefix != "" {
		var err error
		if env, err = loader.NewEnvLoader(c.envPrefix).Load(); err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
	}

	c.mu.Lock()
	c.file = file
	c.env = env
	c.remerge()
	c.mu.Unlock()

	return c.Validate()
}

// Path returns the configuration file path, if any.
func (c *Config) Path() string {
	return c.path
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.merged, path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed with
// time.ParseDuration.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: "string"}
		}
		return d, nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
	}
}

// Set sets a value at the given path in the override layer.
func (c *Config) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := setPath(c.overrides, path, value); err != nil {
		return err
	}
	c.remerge()
	return nil
}

// Merged returns a copy of the merged configuration.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.merged)
}

// Validate checks every known setting for a usable value.
func (c *Config) Validate() error {
	positive := []string{"block.page_size", "block.window_size", "save.chunk_size", "script.call_stack_size"}
	for _, path := range positive {
		n, err := c.GetInt(path)
		if err != nil {
			return err
		}
		if n <= 0 {
			return &ValidationError{Path: path, Message: "must be positive", Value: n}
		}
	}

	level, err := c.GetString("log.level")
	if err != nil {
		return err
	}
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log.level", Message: "unknown level", Value: level}
	}

	for _, path := range []string{"watch.debounce", "script.timeout"} {
		d, err := c.GetDuration(path)
		if err != nil {
			return err
		}
		if d < 0 {
			return &ValidationError{Path: path, Message: "must not be negative", Value: d}
		}
	}

	if _, err := c.GetBool("watch.enabled"); err != nil {
		return err
	}
	for _, path := range []string{"log.file", "save.temp_dir"} {
		if _, err := c.GetString(path); err != nil {
			return err
		}
	}
	return nil
}

// remerge rebuilds the merged map. Caller must hold c.mu for writing.
func (c *Config) remerge() {
	merged := loader.Clone(c.defaults)
	for _, layer := range []map[string]any{c.file, c.env, c.overrides} {
		merged = loader.DeepMerge(merged, layer)
	}
	c.merged = merged
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"block": map[string]any{
			"page_size":   int64(block.DefaultPageSize),
			"window_size": int64(block.DefaultWindowSize),
		},
		"log": map[string]any{
			"level": "info",
			"file":  "",
		},
		"save": map[string]any{
			"temp_dir":   "",
			"chunk_size": int64(save.DefaultChunkSize),
		},
		"watch": map[string]any{
			"enabled":  true,
			"debounce": 50 * time.Millisecond,
		},
		"script": map[string]any{
			"timeout":         30 * time.Second,
			"call_stack_size": int64(256),
		},
	}
}

// getPath retrieves a value from a nested map using a dot-separated path.
func getPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}

	current := any(m)
	for _, part := range parts {
		cm, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = cm[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath sets a value in a nested map using a dot-separated path.
func setPath(m map[string]any, path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ErrInvalidPath
	}

	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidPath
		}
		current = nextMap
	}

	current[parts[len(parts)-1]] = value
	return nil
}

// splitPath splits a dot-separated path into parts, skipping empty ones.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
