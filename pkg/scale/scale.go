// Package scale maps data values to symbol sizes.
//
// Scaling is area-proportional: the square root in the formula makes a
// symbol's area, not its linear size, vary linearly with the data value.
// Sizes are diameters for circle tools and square widths for the treemap.
package scale

import (
	"math"

	"github.com/cartopack/cartopack/pkg/errors"
)

// Scaler interpolates values from a data domain [vmin, vmax] into a size
// range [smin, smax]:
//
//	size(v) = smin + sqrt((v - vmin) / (vmax - vmin)) * (smax - smin)
type Scaler struct {
	vmin, vmax float64
	smin, smax float64
}

// New creates a scaler for the given data domain and size range.
// The size range is configuration and is validated here; the data domain
// comes from aggregation and is checked per value in Size.
func New(vmin, vmax, smin, smax float64) (*Scaler, error) {
	if err := errors.ValidateSizeRange(smin, smax); err != nil {
		return nil, err
	}
	if math.IsNaN(vmin) || math.IsInf(vmin, 0) || math.IsNaN(vmax) || math.IsInf(vmax, 0) {
		return nil, errors.New(errors.ErrCodeBadValue, "data domain is not finite: [%v, %v]", vmin, vmax)
	}
	return &Scaler{vmin: vmin, vmax: vmax, smin: smin, smax: smax}, nil
}

// Fit creates a scaler whose data domain spans the given values.
func Fit(values []float64, smin, smax float64) (*Scaler, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGroup, "no values to fit a scale to")
	}
	vmin, vmax := values[0], values[0]
	for _, v := range values[1:] {
		vmin = min(vmin, v)
		vmax = max(vmax, v)
	}
	return New(vmin, vmax, smin, smax)
}

// Size returns the interpolated size for v.
// A degenerate domain (vmax == vmin) and values outside the domain are data
// errors; out-of-domain values are never clamped.
func (s *Scaler) Size(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(errors.ErrCodeBadValue, "value is not finite: %v", v)
	}
	if s.vmax == s.vmin {
		return 0, errors.New(errors.ErrCodeDegenerateRange, "degenerate data domain: min == max == %v", s.vmin)
	}
	if v < s.vmin || v > s.vmax {
		return 0, errors.New(errors.ErrCodeValueOutOfRange, "value %v outside domain [%v, %v]", v, s.vmin, s.vmax)
	}
	return s.smin + math.Sqrt((v-s.vmin)/(s.vmax-s.vmin))*(s.smax-s.smin), nil
}

// Radius returns the circle radius for v: the size is a diameter, rounded
// to 2 decimal places before halving so repeated runs reproduce identical
// coordinates.
func (s *Scaler) Radius(v float64) (float64, error) {
	d, err := s.Size(v)
	if err != nil {
		return 0, err
	}
	return round2(d) / 2, nil
}

// Side returns the square side length for v, rounded like Radius but left
// unhalved. Used by the treemap tool.
func (s *Scaler) Side(v float64) (float64, error) {
	d, err := s.Size(v)
	if err != nil {
		return 0, err
	}
	return round2(d), nil
}

// round2 rounds to 2 decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
