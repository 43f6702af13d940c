// Package config provides the configuration system for bytestorm.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Overrides (Set, flags)  │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← BYTESTORM_BLOCK_PAGE_SIZE
//	├─────────────────────────────┤
//	│  2. Config File             │  ← bytestorm.toml / bytestorm.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Settings
//
//	block.page_size          capacity of each in-memory page (bytes)
//	block.window_size        read-ahead window for file blocks (bytes)
//	log.level                debug, info, warn or error
//	log.file                 optional log file; empty logs to stderr
//	save.temp_dir            directory for atomic-save temp files
//	save.chunk_size          copy chunk size for in-place saves (bytes)
//	watch.enabled            invalidate file blocks on external change
//	watch.debounce           coalescing window for file events
//	script.timeout           wall-clock limit for a Lua script
//	script.call_stack_size   Lua call stack depth
//
// # Basic Usage
//
//	cfg := config.New(config.WithFile("bytestorm.toml"))
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//	blk := cfg.Block()
//	store := block.NewStore(block.WithPageSize(blk.PageSize))
//
// # Thread Safety
//
// All Config methods are safe for concurrent use.
package config
