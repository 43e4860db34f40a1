package transformation

import (
	"errors"
	"fmt"
	"math"

	"github.com/mahirjain10/image-optimizer/internal/types"
)

var (
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrBelowBounds       = errors.New("image below maximum bounds")
)

// ComputeScaling derives the uniform scale factor that fits dim inside the
// maxWidth x maxHeight box. Only images that reach the bound on at least one
// axis are eligible; smaller images return ErrBelowBounds and are never
// upscaled.
func ComputeScaling(dim types.Dimensions, maxWidth, maxHeight int) (types.ScalingDecision, error) {
	if dim.Width <= 0 || dim.Height <= 0 {
		return types.ScalingDecision{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, dim.Width, dim.Height)
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return types.ScalingDecision{}, fmt.Errorf("%w: bounds %dx%d", ErrInvalidDimensions, maxWidth, maxHeight)
	}

	if dim.Width < maxWidth && dim.Height < maxHeight {
		return types.ScalingDecision{}, fmt.Errorf("%w: %dx%d within %dx%d", ErrBelowBounds, dim.Width, dim.Height, maxWidth, maxHeight)
	}

	factor := math.Min(
		float64(maxWidth)/float64(dim.Width),
		float64(maxHeight)/float64(dim.Height),
	)

	return types.ScalingDecision{
		Factor: factor,
		Source: dim,
		Target: types.Dimensions{
			Width:  scaleAxis(dim.Width, factor, maxWidth),
			Height: scaleAxis(dim.Height, factor, maxHeight),
		},
	}, nil
}

// scaleAxis rounds to the nearest pixel, clamped to [1, bound].
func scaleAxis(size int, factor float64, bound int) int {
	v := int(math.Round(float64(size) * factor))
	if v > bound {
		v = bound
	}
	if v < 1 {
		v = 1
	}
	return v
}
