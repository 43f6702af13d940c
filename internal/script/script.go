// Package script runs Lua edit scripts against a buffer.
//
// Each run gets a fresh sandboxed gopher-lua state with only the base,
// string, table and math libraries. File loading functions are removed and
// print writes to the runner's output. The buffer API is installed as
// globals:
//
//	len()                      buffer length
//	read(from, to)             bytes in [from, to) as a string
//	uint(from, to [, order])   unsigned integer, order "le" (default) or "be"
//	insert(pos, s)             insert s at pos
//	insert_byte(pos, b)        insert one byte
//	insert_uint(pos, v, size [, order])
//	fill(pos, n, b)            insert n copies of byte b
//	remove(from, to)           remove [from, to)
//	replace(from, to, s)       replace [from, to) with s
//	overwrite(pos, s)          overwrite bytes starting at pos
//	copy(from, to, dest)       copy [from, to) to dest
//	move(from, to, dest)       move [from, to) to dest
//	transform(from, to, kind [, key])  kind is "invert", "reverse" or "xor"
//	undo(), redo()             return whether anything changed
//	group(name, fn)            run fn as one undo step
//	mark(pos)                  create a mark
//	set_mark(m, pos), pos(m), destroy_mark(m)
//	save([path])               save in place when possible, or to path
//
// Positions are byte offsets or marks. START, INSERT and END are the
// permanent marks.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/bytestorm/internal/engine"
)

// Defaults for script runs.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultCallStackSize = 256
)

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.callStackSize = n
		}
	}
}

// WithOutput sets where print writes.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner executes scripts against one buffer. Runs may be concurrent; each
// uses its own Lua state.
type Runner struct {
	buf           *engine.Buffer
	timeout       time.Duration
	callStackSize int
	out           io.Writer
	logger        *zap.Logger
}

// New creates a runner bound to buf.
func New(buf *engine.Buffer, opts ...Option) *Runner {
	r := &Runner{
		buf:           buf,
		timeout:       DefaultTimeout,
		callStackSize: DefaultCallStackSize,
		out:           os.Stdout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunFile runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return r.RunString(ctx, path, string(src))
}

// RunString runs src. name labels errors.
func (r *Runner) RunString(ctx context.Context, name, src string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: r.callStackSize,
	})
	defer L.Close()

	openLibraries(L)
	L.SetGlobal("print", L.NewFunction(r.print))

	a := &api{buf: r.buf}
	a.install(L)
	defer a.cleanup()

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}

	L.SetContext(ctx)
	start := time.Now()
	err = r.call(L, fn)
	r.logger.Debug("script finished",
		zap.String("script", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrTimeout, name)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %s", ErrCanceled, name)
	}
	return fmt.Errorf("script %s: %w", name, err)
}

// call runs fn and converts Go panics raised inside bindings into errors.
func (r *Runner) call(L *lua.LState, fn *lua.LFunction) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

func (r *Runner) print(L *lua.LState) int {
	n := L.GetTop()
	for i := 1; i <= n; i++ {
		if i > 1 {
			io.WriteString(r.out, "\t")
		}
		io.WriteString(r.out, L.ToStringMeta(L.Get(i)).String())
	}
	io.WriteString(r.out, "\n")
	return 0
}

// openLibraries opens the libraries scripts may use and removes the ones
// that reach the file system.
func openLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetTop(0)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}
