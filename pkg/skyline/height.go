package skyline

import (
	"math"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// DefaultScale is the upper bound of the height scale.
const DefaultScale = 10.0

// Normalizer maps top y positions onto the 0..Scale height scale.
// The zero value uses DefaultScale.
type Normalizer struct {
	Scale float64
}

func (n Normalizer) scale() float64 {
	if n.Scale <= 0 {
		return DefaultScale
	}
	return n.Scale
}

// Height returns clamp(Scale*(1-topY/canvasHeight), 0, Scale). It fails with
// a degenerate canvas error when canvasHeight is not a positive finite
// number.
func (n Normalizer) Height(topY, canvasHeight float64) (float64, error) {
	if !(canvasHeight > 0) || math.IsInf(canvasHeight, 1) {
		return 0, errs.New(errs.ErrCodeDegenerateCanvas, "canvas height %g is not positive", canvasHeight)
	}
	s := n.scale()
	h := s * (1 - topY/canvasHeight)
	if math.IsNaN(h) {
		return 0, errs.New(errs.ErrCodeInvalidInput, "top y %g is not a number", topY)
	}
	return math.Min(math.Max(h, 0), s), nil
}

// Normalize sets the Height of every building in place against the canvas
// height.
func (n Normalizer) Normalize(buildings []Building, canvas svg.ViewBox) error {
	for i := range buildings {
		h, err := n.Height(buildings[i].TopY, canvas.Height)
		if err != nil {
			return err
		}
		buildings[i].Height = h
	}
	return nil
}
