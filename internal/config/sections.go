package config

import "time"

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use Config.Set()
// to update configuration values.

// BlockConfig holds block store settings.
type BlockConfig struct {
	// PageSize is the capacity of each in-memory page.
	PageSize int

	// WindowSize is the read window cached per file block.
	WindowSize int
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level.
	Level string

	// File is the log file path. Empty logs to stderr.
	File string
}

// SaveConfig holds save settings.
type SaveConfig struct {
	// TempDir is where atomic saves stage their temp file.
	// Empty uses the target's directory.
	TempDir string

	// ChunkSize bounds each copy step of an in-place save.
	ChunkSize int
}

// WatchConfig holds file watching settings.
type WatchConfig struct {
	// Enabled turns on invalidation of file blocks on external change.
	Enabled bool

	// Debounce coalesces bursts of file events.
	Debounce time.Duration
}

// ScriptConfig holds Lua script settings.
type ScriptConfig struct {
	// Timeout bounds a script's run time. Zero means no limit.
	Timeout time.Duration

	// CallStackSize is the Lua call stack depth.
	CallStackSize int
}

// Block returns block store settings.
func (c *Config) Block() BlockConfig {
	return BlockConfig{
		PageSize:   c.getIntOr("block.page_size", 64*1024),
		WindowSize: c.getIntOr("block.window_size", 4*1024),
	}
}

// Log returns logging settings.
func (c *Config) Log() LogConfig {
	return LogConfig{
		Level: c.getStringOr("log.level", "info"),
		File:  c.getStringOr("log.file", ""),
	}
}

// Save returns save settings.
func (c *Config) Save() SaveConfig {
	return SaveConfig{
		TempDir:   c.getStringOr("save.temp_dir", ""),
		ChunkSize: c.getIntOr("save.chunk_size", 64*1024),
	}
}

// Watch returns file watching settings.
func (c *Config) Watch() WatchConfig {
	return WatchConfig{
		Enabled:  c.getBoolOr("watch.enabled", true),
		Debounce: c.getDurationOr("watch.debounce", 50*time.Millisecond),
	}
}

// Script returns Lua script settings.
func (c *Config) Script() ScriptConfig {
	return ScriptConfig{
		Timeout:       c.getDurationOr("script.timeout", 30*time.Second),
		CallStackSize: c.getIntOr("script.call_stack_size", 256),
	}
}

func (c *Config) getStringOr(path, def string) string {
	if v, err := c.GetString(path); err == nil {
		return v
	}
	return def
}

func (c *Config) getIntOr(path string, def int) int {
	if v, err := c.GetInt(path); err == nil {
		return v
	}
	return def
}

func (c *Config) getBoolOr(path string, def bool) bool {
	if v, err := c.GetBool(path); err == nil {
		return v
	}
	return def
}

func (c *Config) getDurationOr(path string, def time.Duration) time.Duration {
	if v, err := c.GetDuration(path); err == nil {
		return v
	}
	return def
}
