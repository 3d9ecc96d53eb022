package timeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
)

// Block is a timed interval of the timeline labeled with a phonetic unit
// and a mouth-shape category. Blocks are edited only through timeline
// commands; treat values returned by the timeline as snapshots.
type Block struct {
	ID        string        `json:"id"`
	Unit      phoneme.Unit  `json:"unit"`
	Start     float64       `json:"start"`
	End       float64       `json:"end"`
	Shape     phoneme.Shape `json:"shape"`
	Amplitude float64       `json:"amplitude"` // mean envelope amplitude over the block
}

// NewBlock builds a block for the given unit and interval, assigning a
// fresh ID and deriving the mouth shape from the unit's label.
func NewBlock(unit phoneme.Unit, start, end float64) Block {
	return Block{
		ID:    uuid.NewString(),
		Unit:  unit,
		Start: start,
		End:   end,
		Shape: phoneme.ShapeForLabel(unit.Label),
	}
}

// Duration returns the block length in seconds.
func (b Block) Duration() float64 { return b.End - b.Start }

// validate checks the single-block invariant.
func (b Block) validate() error {
	if b.Start >= b.End {
		return fmt.Errorf("%w: block %q [%.3f, %.3f) has non-positive duration",
			ErrInvalidEdit, b.Unit.Label, b.Start, b.End)
	}
	return nil
}
