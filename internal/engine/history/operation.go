package history

import (
	"time"

	"github.com/dshills/bytestorm/internal/engine/piece"
)

// Op tags the buffer operation that produced an item.
type Op uint8

const (
	OpRoot Op = iota
	OpInsert
	OpRemove
	OpReplace
	OpCopy
	OpMove
	OpFill
	OpTransform
	OpOverwrite
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpRoot:
		return "root"
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	case OpFill:
		return "fill"
	case OpTransform:
		return "transform"
	case OpOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// ItemID addresses an item in a tree. The root is always RootID.
type ItemID int

// RootID is the id of the root item.
const RootID ItemID = 0

// Item is one node of the history tree.
type Item struct {
	ID     ItemID
	Parent ItemID
	Op     Op

	// Group is non-zero for items added inside BeginGroup/EndGroup.
	Group     uint64
	GroupName string

	Time   time.Time
	Splice *piece.Splice

	children []ItemID
	active   bool
}

// IsRoot returns true for the root item.
func (it *Item) IsRoot() bool {
	return it.ID == RootID
}

// Active reports whether the item lies on the path from the root to the
// current item.
func (it *Item) Active() bool {
	return it.active
}

// Delta returns the change in buffer length the item's splice causes.
func (it *Item) Delta() int64 {
	if it.Splice == nil {
		return 0
	}
	return it.Splice.Delta()
}

// Kind identifies the navigation that produced a Change.
type Kind uint8

const (
	Added Kind = iota
	Undone
	Redone
	Jumped
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Undone:
		return "undone"
	case Redone:
		return "redone"
	case Jumped:
		return "jumped"
	default:
		return "unknown"
	}
}

// Change is delivered to listeners once per step. A Jump reports every
// intermediate undo and redo step with Kind Jumped.
type Change struct {
	Kind Kind
	Old  ItemID
	New  ItemID

	// Splice is the splice that was applied or reverted.
	Splice *piece.Splice

	// Reverted is true when Splice was reverted rather than applied.
	Reverted bool
}

// Listener observes tree changes.
type Listener func(Change)
