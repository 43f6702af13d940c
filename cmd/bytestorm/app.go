package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/config"
	"github.com/dshills/bytestorm/internal/engine"
	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/save"
	"github.com/dshills/bytestorm/internal/event"
	"github.com/dshills/bytestorm/internal/event/topic"
	"github.com/dshills/bytestorm/internal/logging"
	"github.com/dshills/bytestorm/internal/script"
	"github.com/dshills/bytestorm/internal/watch"
)

// app wires configuration, logging and the buffer for one invocation.
type app struct {
	opts     options
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	bus      *event.Bus
	store    *block.Store
	watcher  *watch.Watcher
	buf      *engine.Buffer
}

func newApp(ctx context.Context, opts options) (a *app, err error) {
	a = &app{opts: opts, closeLog: func() {}}
	defer func() {
		if err != nil {
			a.shutdown()
		}
	}()

	a.cfg = config.New(config.WithFile(opts.ConfigPath))
	if err := a.cfg.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.LogLevel != "" {
		if err := a.cfg.Set("log.level", opts.LogLevel); err != nil {
			return nil, err
		}
	}

	logCfg := a.cfg.Log()
	a.logger, a.closeLog, err = logging.New(logging.Config{Level: logCfg.Level, File: logCfg.File})
	if err != nil {
		return nil, err
	}

	a.bus = event.NewBus(event.WithLogger(a.logger))
	if err := a.bus.Start(); err != nil {
		return nil, err
	}
	a.subscribe()

	blockCfg := a.cfg.Block()
	a.store = block.NewStore(
		block.WithPageSize(blockCfg.PageSize),
		block.WithWindowSize(blockCfg.WindowSize),
	)

	saveCfg := a.cfg.Save()
	a.buf, err = engine.Open(opts.File,
		engine.WithStore(a.store),
		engine.WithBus(a.bus),
		engine.WithLogger(a.logger),
		engine.WithSaveOptions(
			save.WithChunkSize(saveCfg.ChunkSize),
			save.WithTempDir(saveCfg.TempDir),
		),
	)
	if err != nil {
		return nil, err
	}

	if watchCfg := a.cfg.Watch(); watchCfg.Enabled {
		a.watcher, err = watch.New(a.store, a.bus,
			watch.WithDebounce(watchCfg.Debounce),
			watch.WithLogger(a.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("starting watcher: %w", err)
		}
		if err := a.watcher.Watch(a.buf.Path()); err != nil {
			return nil, fmt.Errorf("watching %s: %w", a.buf.Path(), err)
		}
	}

	a.logger.Debug("opened",
		zap.String("path", a.buf.Path()),
		zap.Int64("length", a.buf.Len()),
		zap.String("config", a.cfg.Path()),
	)
	return a, nil
}

// subscribe logs buffer lifecycle events.
func (a *app) subscribe() {
	a.bus.Subscribe(topic.FileChanged, event.AsHandler(func(_ context.Context, e event.Event[event.FileChanged]) error {
		if e.Payload.Removed {
			a.logger.Warn("backing file removed", zap.String("path", e.Payload.Path))
			return nil
		}
		a.logger.Warn("backing file changed on disk", zap.String("path", e.Payload.Path))
		return nil
	}))
	a.bus.Subscribe(topic.HistoryAdded, event.AsHandler(func(_ context.Context, e event.Event[event.HistoryChanged]) error {
		a.logger.Debug("edit", zap.Int("item", e.Payload.New))
		return nil
	}))
}

// execute runs the requested steps in order: script, plan, save, digest.
func (a *app) execute(ctx context.Context, out io.Writer) error {
	if a.opts.Script != "" {
		scriptCfg := a.cfg.Script()
		r := script.New(a.buf,
			script.WithTimeout(scriptCfg.Timeout),
			script.WithCallStackSize(scriptCfg.CallStackSize),
			script.WithOutput(out),
			script.WithLogger(a.logger),
		)
		if err := r.RunFile(ctx, a.opts.Script); err != nil {
			return err
		}
	}

	if a.opts.Plan {
		printPlan(out, a.buf.Plan())
	}

	if err := a.save(); err != nil {
		return err
	}

	if a.opts.Digest {
		sum, err := a.buf.Digest(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%016x  %s\n", sum, a.buf.Path())
	}
	return nil
}

func (a *app) save() error {
	old := a.buf.Path()
	var err error
	switch {
	case a.opts.Save:
		err = a.buf.Save()
	case a.opts.SaveInPlace:
		err = a.buf.SaveInPlace()
	case a.opts.SaveAs != "":
		err = a.buf.SaveAs(a.opts.SaveAs)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if a.watcher != nil && a.buf.Path() != old {
		_ = a.watcher.Unwatch(old)
		return a.watcher.Watch(a.buf.Path())
	}
	return nil
}

func printPlan(out io.Writer, p *save.Plan) {
	if p.InPlace {
		fmt.Fprintf(out, "plan: in place\n")
	} else {
		fmt.Fprintf(out, "plan: rewrite (%s)\n", p.Reason)
	}
	fmt.Fprintf(out, "length: %d\n", p.Length)
	fmt.Fprintf(out, "blocks: %d\n", p.Blocks)
	if !p.InPlace {
		return
	}
	fmt.Fprintf(out, "writes: %d (%d bytes)\n", p.Writes, p.WriteBytes)
	for _, in := range p.Instructions {
		if !in.Write {
			continue
		}
		fmt.Fprintf(out, "  %#x +%d\n", in.Offset, in.Piece.Len())
	}
}

// shutdown releases everything newApp acquired.
func (a *app) shutdown() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.buf != nil {
		_ = a.buf.Close()
	}
	if a.bus != nil {
		_ = a.bus.Stop(context.Background())
	}
	if a.logger != nil {
		a.logger.Debug("shutdown")
	}
	a.closeLog()
}
