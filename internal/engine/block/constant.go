package block

// ConstantBlock is an infinite block in which every byte has the same value.
type ConstantBlock struct {
	id    ID
	value byte
}

// NewConstantBlock creates a constant block. Prefer Store.Constant, which
// interns one block per value.
func NewConstantBlock(value byte) *ConstantBlock {
	return &ConstantBlock{id: nextID(), value: value}
}

// ID returns the block identity.
func (b *ConstantBlock) ID() ID { return b.id }

// Kind returns KindConstant.
func (b *ConstantBlock) Kind() Kind { return KindConstant }

// Len returns Unbounded.
func (b *ConstantBlock) Len() int64 { return Unbounded }

// Value returns the fill byte.
func (b *ConstantBlock) Value() byte { return b.value }

// ReadAt fills p with the block's value.
func (b *ConstantBlock) ReadAt(p []byte, off int64) (int, error) {
	checkRange(KindConstant, b.id, Unbounded, off, len(p))
	for i := range p {
		p[i] = b.value
	}
	return len(p), nil
}

// WriteAt always fails: constant blocks are immutable.
func (b *ConstantBlock) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrUnsupportedOperation
}
