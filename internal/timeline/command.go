package timeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
)

// Command is one reversible edit. Each command records the delta it needs
// to exactly undo itself, so history cost grows with edit count rather
// than document size. apply and revert are unexported: all mutation goes
// through Timeline.Apply / Undo / Redo.
type Command interface {
	Name() string
	apply(t *Timeline) error
	revert(t *Timeline) error
}

// Insert adds a new block. An empty ID is assigned on first apply and kept
// stable across redo.
type Insert struct {
	Block Block
}

func (c *Insert) Name() string { return "insert" }

func (c *Insert) apply(t *Timeline) error {
	if c.Block.ID == "" {
		c.Block.ID = uuid.NewString()
	}
	if err := c.Block.validate(); err != nil {
		return err
	}
	if err := t.fits(c.Block.Start, c.Block.End, -1); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	t.insertAt(t.insertionIndex(c.Block.Start), c.Block)
	return nil
}

func (c *Insert) revert(t *Timeline) error {
	i := t.indexOf(c.Block.ID)
	if i < 0 {
		return fmt.Errorf("%w: inserted block %s no longer present", ErrInvalidEdit, c.Block.ID)
	}
	t.removeAt(i)
	return nil
}

// Delete removes the block with the given ID.
type Delete struct {
	ID string

	removed Block
	index   int
}

func (c *Delete) Name() string { return "delete" }

func (c *Delete) apply(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: delete: no block with id %s", ErrInvalidEdit, c.ID)
	}
	c.removed, c.index = t.blocks[i], i
	t.removeAt(i)
	return nil
}

func (c *Delete) revert(t *Timeline) error {
	t.insertAt(c.index, c.removed)
	return nil
}

// Move shifts a block to a new start time, keeping its duration. A move
// that would overlap a neighbor is rejected with ErrInvalidEdit.
type Move struct {
	ID       string
	NewStart float64

	oldStart float64
}

func (c *Move) Name() string { return "move" }

func (c *Move) apply(t *Timeline) error {
	return c.moveTo(t, c.NewStart, true)
}

func (c *Move) revert(t *Timeline) error {
	return c.moveTo(t, c.oldStart, false)
}

func (c *Move) moveTo(t *Timeline, start float64, record bool) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: move: no block with id %s", ErrInvalidEdit, c.ID)
	}
	b := t.blocks[i]
	if start < 0 {
		return fmt.Errorf("%w: move block %q before 0 (to %.3f)", ErrInvalidEdit, b.Unit.Label, start)
	}
	dur := b.Duration()
	if err := t.fits(start, start+dur, i); err != nil {
		return fmt.Errorf("move block %q: %w", b.Unit.Label, err)
	}
	if record {
		c.oldStart = b.Start
	}
	b.Start, b.End = start, start+dur
	t.removeAt(i)
	t.insertAt(t.insertionIndex(b.Start), b)
	return nil
}

// Split divides a block in two at the given time. Both halves inherit the
// original label unless LeftLabel/RightLabel are supplied; the right half
// receives a fresh, redo-stable ID.
type Split struct {
	ID         string
	At         float64
	LeftLabel  string // optional replacement label for the first half
	RightLabel string // optional replacement label for the second half

	original Block
	rightID  string
}

func (c *Split) Name() string { return "split" }

func (c *Split) apply(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: split: no block with id %s", ErrInvalidEdit, c.ID)
	}
	b := t.blocks[i]
	if c.At <= b.Start || c.At >= b.End {
		return fmt.Errorf("%w: split point %.3f outside block %q (%.3f, %.3f)",
			ErrInvalidEdit, c.At, b.Unit.Label, b.Start, b.End)
	}
	if c.rightID == "" {
		c.rightID = uuid.NewString()
	}
	c.original = b

	left := b
	left.End = c.At
	if c.LeftLabel != "" {
		left.Unit.Label = c.LeftLabel
		left.Shape = phoneme.ShapeForLabel(c.LeftLabel)
	}

	right := b
	right.ID = c.rightID
	right.Start = c.At
	if c.RightLabel != "" {
		right.Unit.Label = c.RightLabel
		right.Shape = phoneme.ShapeForLabel(c.RightLabel)
	}

	t.blocks[i] = left
	t.insertAt(i+1, right)
	return nil
}

func (c *Split) revert(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 || i+1 >= len(t.blocks) || t.blocks[i+1].ID != c.rightID {
		return fmt.Errorf("%w: split halves of %s no longer adjacent", ErrInvalidEdit, c.ID)
	}
	t.removeAt(i + 1)
	t.blocks[i] = c.original
	return nil
}

// Merge combines a block with its successor into one block spanning both
// intervals. The earlier block's label and ID win unless Label overrides;
// the amplitude hint becomes the duration-weighted mean of the halves.
type Merge struct {
	ID    string
	Label string // optional label for the merged block

	left, right Block
}

func (c *Merge) Name() string { return "merge" }

func (c *Merge) apply(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: merge: no block with id %s", ErrInvalidEdit, c.ID)
	}
	if i+1 >= len(t.blocks) {
		return fmt.Errorf("%w: merge: block %q has no successor", ErrInvalidEdit, t.blocks[i].Unit.Label)
	}
	c.left, c.right = t.blocks[i], t.blocks[i+1]

	merged := c.left
	merged.End = c.right.End
	dl, dr := c.left.Duration(), c.right.Duration()
	merged.Amplitude = (c.left.Amplitude*dl + c.right.Amplitude*dr) / (dl + dr)
	if c.Label != "" {
		merged.Unit.Label = c.Label
		merged.Shape = phoneme.ShapeForLabel(c.Label)
	}

	t.blocks[i] = merged
	t.removeAt(i + 1)
	return nil
}

func (c *Merge) revert(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: merged block %s no longer present", ErrInvalidEdit, c.ID)
	}
	t.blocks[i] = c.left
	t.insertAt(i+1, c.right)
	return nil
}

// Retime moves the shared boundary between a block and its touching
// successor, shrinking one and growing the other. Both must keep positive
// duration.
type Retime struct {
	ID          string // the earlier block
	NewBoundary float64

	oldBoundary float64
}

func (c *Retime) Name() string { return "retime" }

func (c *Retime) apply(t *Timeline) error {
	return c.setBoundary(t, c.NewBoundary, true)
}

func (c *Retime) revert(t *Timeline) error {
	return c.setBoundary(t, c.oldBoundary, false)
}

func (c *Retime) setBoundary(t *Timeline, boundary float64, record bool) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: retime: no block with id %s", ErrInvalidEdit, c.ID)
	}
	if i+1 >= len(t.blocks) {
		return fmt.Errorf("%w: retime: block %q has no successor", ErrInvalidEdit, t.blocks[i].Unit.Label)
	}
	left, right := t.blocks[i], t.blocks[i+1]
	if left.End != right.Start {
		return fmt.Errorf("%w: retime: blocks %q and %q do not share a boundary (%.3f vs %.3f)",
			ErrInvalidEdit, left.Unit.Label, right.Unit.Label, left.End, right.Start)
	}
	if boundary <= left.Start || boundary >= right.End {
		return fmt.Errorf("%w: boundary %.3f must stay inside (%.3f, %.3f)",
			ErrInvalidEdit, boundary, left.Start, right.End)
	}
	if record {
		c.oldBoundary = left.End
	}
	t.blocks[i].End = boundary
	t.blocks[i+1].Start = boundary
	return nil
}

// Relabel changes a block's phoneme label and rederives its mouth shape.
type Relabel struct {
	ID       string
	NewLabel string

	oldUnit  phoneme.Unit
	oldShape phoneme.Shape
}

func (c *Relabel) Name() string { return "relabel" }

func (c *Relabel) apply(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: relabel: no block with id %s", ErrInvalidEdit, c.ID)
	}
	c.oldUnit, c.oldShape = t.blocks[i].Unit, t.blocks[i].Shape
	t.blocks[i].Unit.Label = c.NewLabel
	t.blocks[i].Shape = phoneme.ShapeForLabel(c.NewLabel)
	return nil
}

func (c *Relabel) revert(t *Timeline) error {
	i := t.indexOf(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: relabel: no block with id %s", ErrInvalidEdit, c.ID)
	}
	t.blocks[i].Unit, t.blocks[i].Shape = c.oldUnit, c.oldShape
	return nil
}
