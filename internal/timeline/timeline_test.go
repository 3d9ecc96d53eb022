package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
)

func testBlocks() []Block {
	return []Block{
		NewBlock(phoneme.Unit{Surface: "こ", Label: "ko"}, 0.0, 0.4),
		NewBlock(phoneme.Unit{Surface: "ん", Label: "n"}, 0.4, 0.8),
		NewBlock(phoneme.Unit{Surface: "に", Label: "ni"}, 0.8, 1.2),
		NewBlock(phoneme.Unit{Surface: "ち", Label: "chi"}, 1.2, 1.6),
		NewBlock(phoneme.Unit{Surface: "わ", Label: "wa"}, 1.6, 2.0),
	}
}

func newTestTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := New(testBlocks(), nil)
	require.NoError(t, err)
	return tl
}

func TestNewRejectsOverlap(t *testing.T) {
	blocks := []Block{
		NewBlock(phoneme.Unit{Label: "a"}, 0.0, 0.6),
		NewBlock(phoneme.Unit{Label: "i"}, 0.5, 1.0),
	}
	_, err := New(blocks, nil)
	require.ErrorIs(t, err, ErrInvalidEdit)
}

func TestNewSortsBlocks(t *testing.T) {
	blocks := []Block{
		NewBlock(phoneme.Unit{Label: "i"}, 0.5, 1.0),
		NewBlock(phoneme.Unit{Label: "a"}, 0.0, 0.5),
	}
	tl, err := New(blocks, nil)
	require.NoError(t, err)
	got := tl.Blocks()
	assert.Equal(t, "a", got[0].Unit.Label)
	assert.Equal(t, "i", got[1].Unit.Label)
}

func TestUndoRedoRestoresState(t *testing.T) {
	tl := newTestTimeline(t)
	initial := tl.Blocks()
	ids := blockIDs(tl)

	cmds := []Command{
		&Move{ID: ids[4], NewStart: 1.7},
		&Relabel{ID: ids[0], NewLabel: "go"},
		&Split{ID: ids[2], At: 1.0},
		&Delete{ID: ids[1]},
		&Retime{ID: ids[2], NewBoundary: 0.9},
	}
	for _, cmd := range cmds {
		require.NoError(t, tl.Apply(cmd), "apply %s", cmd.Name())
	}
	edited := tl.Blocks()
	require.NotEqual(t, initial, edited)

	for range cmds {
		require.NoError(t, tl.Undo())
	}
	assert.Equal(t, initial, tl.Blocks(), "undoing all commands must restore the initial document")
	assert.False(t, tl.CanUndo())

	for range cmds {
		require.NoError(t, tl.Redo())
	}
	assert.Equal(t, edited, tl.Blocks(), "redoing all commands must restore the edited document")
	assert.False(t, tl.CanRedo())
}

func TestFreshEditClearsRedo(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Relabel{ID: ids[0], NewLabel: "ga"}))
	require.NoError(t, tl.Undo())
	require.True(t, tl.CanRedo())

	require.NoError(t, tl.Apply(&Relabel{ID: ids[0], NewLabel: "ma"}))
	assert.False(t, tl.CanRedo(), "a fresh edit invalidates the redo stack")
}

func TestSplitThenMergeRestoresBoundaries(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)
	before := tl.Blocks()

	require.NoError(t, tl.Apply(&Split{ID: ids[2], At: 1.0}))
	require.Equal(t, 6, tl.Len())

	halves := tl.Blocks()
	assert.Equal(t, 1.0, halves[2].End)
	assert.Equal(t, 1.0, halves[3].Start)
	assert.Equal(t, "ni", halves[2].Unit.Label, "split halves inherit the label")
	assert.Equal(t, "ni", halves[3].Unit.Label)

	require.NoError(t, tl.Apply(&Merge{ID: ids[2]}))
	after := tl.Blocks()
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Start, after[i].Start, "block %d start", i)
		assert.Equal(t, before[i].End, after[i].End, "block %d end", i)
	}
}

func TestSplitWithNewLabels(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Split{ID: ids[0], At: 0.2, LeftLabel: "ka", RightLabel: "o"}))
	got := tl.Blocks()
	assert.Equal(t, "ka", got[0].Unit.Label)
	assert.Equal(t, phoneme.ShapeA, got[0].Shape)
	assert.Equal(t, "o", got[1].Unit.Label)
	assert.Equal(t, phoneme.ShapeO, got[1].Shape)
}

func TestSplitOutsideBlockRejected(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	err := tl.Apply(&Split{ID: ids[0], At: 0.4})
	require.ErrorIs(t, err, ErrInvalidEdit)
	assert.Equal(t, 5, tl.Len())
	assert.False(t, tl.CanUndo(), "rejected commands must not enter the history")
}

func TestMergeKeepsEarlierLabel(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Merge{ID: ids[0]}))
	got := tl.Blocks()
	assert.Equal(t, "ko", got[0].Unit.Label)
	assert.Equal(t, 0.0, got[0].Start)
	assert.Equal(t, 0.8, got[0].End)
}

func TestMoveOverlapRejected(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)
	before := tl.Blocks()

	err := tl.Apply(&Move{ID: ids[0], NewStart: 0.5})
	require.ErrorIs(t, err, ErrInvalidEdit)
	assert.Equal(t, before, tl.Blocks(), "rejected move must leave the document untouched")
}

func TestMoveIntoGap(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Delete{ID: ids[1]}))
	require.NoError(t, tl.Apply(&Move{ID: ids[0], NewStart: 0.4}))
	got := tl.Blocks()
	assert.Equal(t, 0.4, got[0].Start)
	assert.Equal(t, 0.8, got[0].End)
}

func TestRetimeMovesSharedBoundary(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Retime{ID: ids[1], NewBoundary: 1.0}))
	got := tl.Blocks()
	assert.Equal(t, 1.0, got[1].End)
	assert.Equal(t, 1.0, got[2].Start)

	// Collapsing a block entirely is rejected.
	err := tl.Apply(&Retime{ID: ids[1], NewBoundary: 0.4})
	require.ErrorIs(t, err, ErrInvalidEdit)
}

func TestDirtyAndSave(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)
	assert.False(t, tl.Dirty())

	require.NoError(t, tl.Apply(&Relabel{ID: ids[0], NewLabel: "ga"}))
	assert.True(t, tl.Dirty())

	tl.MarkSaved()
	assert.False(t, tl.Dirty())
	assert.True(t, tl.CanUndo(), "saving must not clear the history")

	require.NoError(t, tl.Undo())
	assert.True(t, tl.Dirty())
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)
	tl.SetHistoryLimit(3)

	labels := []string{"a", "i", "u", "e", "o"}
	for _, l := range labels {
		require.NoError(t, tl.Apply(&Relabel{ID: ids[0], NewLabel: l}))
	}

	var undone int
	for tl.CanUndo() {
		require.NoError(t, tl.Undo())
		undone++
	}
	assert.Equal(t, 3, undone)
}

func TestInsertIntoGap(t *testing.T) {
	tl := newTestTimeline(t)
	ids := blockIDs(tl)

	require.NoError(t, tl.Apply(&Delete{ID: ids[2]}))
	cmd := &Insert{Block: NewBlock(phoneme.Silence(), 0.8, 1.2)}
	require.NoError(t, tl.Apply(cmd))

	got := tl.Blocks()
	require.Equal(t, 5, len(got))
	assert.Equal(t, phoneme.SilenceLabel, got[2].Unit.Label)
	assert.Equal(t, phoneme.ShapeClosed, got[2].Shape)

	require.NoError(t, tl.Undo())
	require.NoError(t, tl.Undo())
	assert.Equal(t, "ni", tl.Blocks()[2].Unit.Label)
}

func blockIDs(tl *Timeline) []string {
	blocks := tl.Blocks()
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}
