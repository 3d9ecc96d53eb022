package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RiRi-380/Lipsynctool-beta/internal/audio"
)

// ErrInvalidEdit reports a command that would violate the timeline
// invariants. Edits are rejected, never silently clamped; the wrapped
// message names the block and time range in conflict.
var ErrInvalidEdit = errors.New("invalid edit")

// DefaultHistoryLimit bounds the undo history. The oldest command is
// dropped once the limit is reached.
const DefaultHistoryLimit = 256

// Timeline is the editable document: ordered phoneme blocks, the envelope
// curve they were derived from, and a bounded undo/redo history.
//
// A timeline is not safe for concurrent mutation; callers must guarantee a
// single writer, or the linear ordering of the history would be corrupted.
type Timeline struct {
	blocks   []Block
	envelope *audio.Envelope

	past   []Command
	future []Command
	limit  int

	dirty bool
}

// New creates a timeline from an initial block list and its envelope. The
// blocks are sorted by start time and must not overlap.
func New(blocks []Block, envelope *audio.Envelope) (*Timeline, error) {
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, b := range sorted {
		if err := b.validate(); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].End > b.Start {
			return nil, fmt.Errorf("%w: block %q [%.3f, %.3f) overlaps %q ending at %.3f",
				ErrInvalidEdit, b.Unit.Label, b.Start, b.End, sorted[i-1].Unit.Label, sorted[i-1].End)
		}
	}

	return &Timeline{
		blocks:   sorted,
		envelope: envelope,
		limit:    DefaultHistoryLimit,
	}, nil
}

// Blocks returns a snapshot copy of the block list in start-time order.
func (t *Timeline) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// Len returns the number of blocks.
func (t *Timeline) Len() int { return len(t.blocks) }

// Block returns the block with the given ID.
func (t *Timeline) Block(id string) (Block, bool) {
	if i := t.indexOf(id); i >= 0 {
		return t.blocks[i], true
	}
	return Block{}, false
}

// Envelope returns the read-only envelope curve, which may be nil for
// timelines loaded without audio.
func (t *Timeline) Envelope() *audio.Envelope { return t.envelope }

// Duration returns the end time of the last block, or 0 for an empty
// timeline.
func (t *Timeline) Duration() float64 {
	if len(t.blocks) == 0 {
		return 0
	}
	return t.blocks[len(t.blocks)-1].End
}

// Dirty reports whether the document changed since the last save.
func (t *Timeline) Dirty() bool { return t.dirty }

// MarkSaved transitions the document to the clean state without touching
// the history, so undo remains available across saves.
func (t *Timeline) MarkSaved() { t.dirty = false }

// SetHistoryLimit bounds the undo stack. Limits below 1 are ignored.
func (t *Timeline) SetHistoryLimit(n int) {
	if n >= 1 {
		t.limit = n
	}
}

// Apply executes a command and records it for undo. A fresh edit
// invalidates the redo stack.
func (t *Timeline) Apply(cmd Command) error {
	if err := cmd.apply(t); err != nil {
		return err
	}
	t.past = append(t.past, cmd)
	if len(t.past) > t.limit {
		t.past = t.past[1:]
	}
	t.future = t.future[:0]
	t.dirty = true
	return nil
}

// CanUndo reports whether an applied command can be reverted.
func (t *Timeline) CanUndo() bool { return len(t.past) > 0 }

// CanRedo reports whether an undone command can be reapplied.
func (t *Timeline) CanRedo() bool { return len(t.future) > 0 }

// Undo reverts the most recent command and moves it to the redo stack.
func (t *Timeline) Undo() error {
	if len(t.past) == 0 {
		return fmt.Errorf("%w: nothing to undo", ErrInvalidEdit)
	}
	cmd := t.past[len(t.past)-1]
	if err := cmd.revert(t); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	t.past = t.past[:len(t.past)-1]
	t.future = append(t.future, cmd)
	t.dirty = true
	return nil
}

// Redo reapplies the most recently undone command.
func (t *Timeline) Redo() error {
	if len(t.future) == 0 {
		return fmt.Errorf("%w: nothing to redo", ErrInvalidEdit)
	}
	cmd := t.future[len(t.future)-1]
	if err := cmd.apply(t); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	t.future = t.future[:len(t.future)-1]
	t.past = append(t.past, cmd)
	t.dirty = true
	return nil
}

// ClearHistory drops both stacks, used when loading a new document into an
// existing editing session.
func (t *Timeline) ClearHistory() {
	t.past = t.past[:0]
	t.future = t.future[:0]
}

// indexOf returns the position of the block with the given ID, or -1.
func (t *Timeline) indexOf(id string) int {
	for i, b := range t.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// insertionIndex returns where a block starting at start belongs.
func (t *Timeline) insertionIndex(start float64) int {
	return sort.Search(len(t.blocks), func(i int) bool {
		return t.blocks[i].Start >= start
	})
}

// insertAt places b at index i, shifting the tail.
func (t *Timeline) insertAt(i int, b Block) {
	t.blocks = append(t.blocks, Block{})
	copy(t.blocks[i+1:], t.blocks[i:])
	t.blocks[i] = b
}

// removeAt deletes the block at index i.
func (t *Timeline) removeAt(i int) {
	t.blocks = append(t.blocks[:i], t.blocks[i+1:]...)
}

// fits reports whether the interval [start, end) is free, ignoring the
// block at index skip (use -1 to consider all blocks).
func (t *Timeline) fits(start, end float64, skip int) error {
	for i, b := range t.blocks {
		if i == skip {
			continue
		}
		if b.Start < end && start < b.End {
			return fmt.Errorf("%w: interval [%.3f, %.3f) overlaps block %q [%.3f, %.3f)",
				ErrInvalidEdit, start, end, b.Unit.Label, b.Start, b.End)
		}
	}
	return nil
}
