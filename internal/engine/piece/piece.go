package piece

import (
	"github.com/dshills/bytestorm/internal/engine/block"
)

// ID addresses a piece in the arena. ID 0 is the sentinel.
type ID int32

// Sentinel is the piece that stands before the first and after the last
// live piece.
const Sentinel ID = 0

// Transform is applied to a piece's block bytes when they are read.
// Reverse reads the block range back to front; Xor is applied afterwards.
type Transform struct {
	Xor     byte
	Reverse bool
}

// Common transforms.
var (
	Identity = Transform{}
	Invert   = Transform{Xor: 0xFF}
	Reverse  = Transform{Reverse: true}
)

// Xor returns a transform that xors every byte with k.
func Xor(k byte) Transform {
	return Transform{Xor: k}
}

// IsIdentity returns true if the transform leaves bytes unchanged.
func (x Transform) IsIdentity() bool {
	return x.Xor == 0 && !x.Reverse
}

// PositionPreserving reports whether output byte i depends only on block
// byte i of the piece's range. Only such pieces can be rewritten in place.
func (x Transform) PositionPreserving() bool {
	return !x.Reverse
}

// Then returns the transform equivalent to applying x and then y.
func (x Transform) Then(y Transform) Transform {
	return Transform{Xor: x.Xor ^ y.Xor, Reverse: x.Reverse != y.Reverse}
}

// node is an arena slot.
type node struct {
	block      block.Block
	start, end int64
	xf         Transform
	prev, next ID
	live       bool
}

func (n *node) len() int64 {
	return n.end - n.start
}

// Range is a run of pieces linked head to tail. A detached range is built
// with NewRange and friends and handed to Replace.
type Range struct {
	Head, Tail ID
	Len        int64
}

// IsEmpty returns true if the range holds no pieces.
func (r Range) IsEmpty() bool {
	return r.Head == Sentinel
}

// Info describes a piece for readers outside the package.
type Info struct {
	ID        ID
	Block     block.Block
	Start     int64 // first block byte
	End       int64 // one past the last block byte
	Transform Transform
	Pos       int64 // absolute position in the buffer
}

// Len returns the number of bytes the piece contributes.
func (i Info) Len() int64 {
	return i.End - i.Start
}

// ReadAt copies len(p) logical bytes of the piece, starting k bytes in.
func (i Info) ReadAt(p []byte, k int64) (int, error) {
	return readPiece(i.Block, i.Start, i.End, i.Transform, p, k)
}

// readPiece reads logical bytes [k, k+len(p)) of a piece.
func readPiece(b block.Block, start, end int64, xf Transform, p []byte, k int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	raw := start + k
	if xf.Reverse {
		raw = end - k - int64(len(p))
	}
	if _, err := b.ReadAt(p, raw); err != nil {
		return 0, err
	}

	if xf.Reverse {
		for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
			p[i], p[j] = p[j], p[i]
		}
	}
	if xf.Xor != 0 {
		for i := range p {
			p[i] ^= xf.Xor
		}
	}
	return len(p), nil
}
