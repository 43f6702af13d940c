package block

import (
	"path/filepath"
	"sync"
)

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets the capacity of each memory block.
func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithWindowSize sets the cached window size of file blocks.
func WithWindowSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.windowSize = size
		}
	}
}

// Store owns block storage: the growable memory pages, the registry of open
// file blocks and the interned constant blocks.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	pageSize   int
	windowSize int

	current *MemoryBlock
	pages   int

	files     map[string]*FileBlock
	constants map[byte]*ConstantBlock
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		pageSize:   DefaultPageSize,
		windowSize: DefaultWindowSize,
		files:      make(map[string]*FileBlock),
		constants:  make(map[byte]*ConstantBlock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	sharedOnce  sync.Once
	sharedStore *Store
)

// Shared returns the process-wide store. Buffers that use it share file
// readers for the same path.
func Shared() *Store {
	sharedOnce.Do(func() {
		sharedStore = NewStore()
	})
	return sharedStore
}

// PageSize returns the memory block capacity.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Pages returns how many memory blocks have been allocated.
func (s *Store) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// Append stores p in the current memory block, rolling over to new blocks
// as each one fills. It returns the spans holding p in order.
func (s *Store) Append(p []byte) []Span {
	if len(p) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var spans []Span
	for len(p) > 0 {
		if s.current == nil || s.current.Free() == 0 {
			s.current = NewMemoryBlock(s.pageSize)
			s.pages++
		}
		off, n := s.current.Append(p)
		spans = append(spans, Span{Block: s.current, Start: off, End: off + int64(n)})
		p = p[n:]
	}
	return spans
}

// OpenFile returns the file block for path, opening it on first use.
// Every successful call must be balanced by Release.
func (s *Store) OpenFile(path string) (*FileBlock, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fb, ok := s.files[abs]; ok {
		fb.mu.Lock()
		fb.refs++
		fb.mu.Unlock()
		return fb, nil
	}

	fb, err := openFileBlock(abs, s.windowSize)
	if err != nil {
		return nil, err
	}
	s.files[abs] = fb
	return fb, nil
}

// Release drops one reference to fb and closes it when none remain.
func (s *Store) Release(fb *FileBlock) error {
	if fb == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fb.mu.Lock()
	fb.refs--
	remaining := fb.refs
	fb.mu.Unlock()

	if remaining > 0 {
		return nil
	}
	if s.files[fb.path] == fb {
		delete(s.files, fb.path)
	}
	return fb.close()
}

// Forget detaches path from the registry so the next OpenFile builds a
// fresh block. Existing holders keep reading their block until released.
func (s *Store) Forget(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, abs)
}

// Lookup returns the open block for path, if any.
func (s *Store) Lookup(path string) (*FileBlock, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.files[abs]
	return fb, ok
}

// Constant returns the interned constant block for value.
func (s *Store) Constant(value byte) *ConstantBlock {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.constants[value]
	if !ok {
		cb = NewConstantBlock(value)
		s.constants[value] = cb
	}
	return cb
}
