package save

import (
	"github.com/dshills/bytestorm/internal/engine/block"
	"github.com/dshills/bytestorm/internal/engine/piece"
)

// Source is the content to save. *piece.Table implements it.
type Source interface {
	Len() int64
	Walk(fn func(piece.Info) bool)
}

// Reasons a plan falls back to a full rewrite.
const (
	ReasonNoFile        = "no backing file"
	ReasonFileChanged   = "backing file changed on disk"
	ReasonShared        = "backing file is open in another buffer"
	ReasonForeignFile   = "content from another file"
	ReasonNotInPlace    = "transform is not position preserving"
	ReasonHazard        = "piece reads bytes an earlier write overwrites"
	ReasonLengthChanged = "length differs from the file"
)

// Instruction places one piece at a file offset.
type Instruction struct {
	Offset int64
	Piece  piece.Info
	// Write is false when the piece's bytes are already at Offset.
	Write bool
}

// Plan is the result of Build.
type Plan struct {
	// InPlace is true when Instructions can be executed against the
	// original file.
	InPlace bool

	// Reason explains why a plan is not in place.
	Reason string

	// Instructions cover [0, Length) in ascending order. They are only
	// filled for in-place plans.
	Instructions []Instruction

	Length     int64
	WriteBytes int64
	Blocks     int
	Writes     int
}

// Build computes the save plan for src against the file block it was
// opened from. original may be nil for buffers without a file.
func Build(src Source, original *block.FileBlock) *Plan {
	p := &Plan{Length: src.Len()}

	blocks := make(map[block.ID]struct{})
	src.Walk(func(info piece.Info) bool {
		blocks[info.Block.ID()] = struct{}{}
		return true
	})
	p.Blocks = len(blocks)

	if reason := precheck(src, original); reason != "" {
		return p.full(reason)
	}

	expected := int64(0)
	var reason string
	src.Walk(func(info piece.Info) bool {
		if !info.Transform.PositionPreserving() {
			reason = ReasonNotInPlace
			return false
		}

		ins := Instruction{Offset: expected, Piece: info, Write: true}
		if fb, ok := info.Block.(*block.FileBlock); ok {
			if fb != original {
				reason = ReasonForeignFile
				return false
			}
			if info.Start < expected {
				reason = ReasonHazard
				return false
			}
			if info.Start == expected && info.Transform.IsIdentity() {
				ins.Write = false
			}
		}

		if ins.Write {
			p.WriteBytes += info.Len()
			p.Writes++
		}
		p.Instructions = append(p.Instructions, ins)
		expected += info.Len()
		return true
	})
	if reason != "" {
		return p.full(reason)
	}

	p.InPlace = true
	return p
}

func precheck(src Source, original *block.FileBlock) string {
	if original == nil {
		return ReasonNoFile
	}
	if src.Len() != original.Len() {
		return ReasonLengthChanged
	}
	if changed, err := original.Changed(); err != nil || changed {
		return ReasonFileChanged
	}
	if original.Refs() > 1 {
		return ReasonShared
	}
	return ""
}

func (p *Plan) full(reason string) *Plan {
	p.InPlace = false
	p.Reason = reason
	p.Instructions = nil
	p.WriteBytes = p.Length
	p.Writes = 0
	return p
}
