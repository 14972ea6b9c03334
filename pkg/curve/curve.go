// Package curve provides the piecewise-linear lookup tables shared by the
// dispatch engines: charge/discharge power vs state of charge, temperature
// derating, and the legacy heating efficiency tables.
package curve

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Point is a single breakpoint of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a piecewise-linear function described by breakpoints sorted by X.
// Lookups outside the domain return the value at the nearest breakpoint; a
// curve never extrapolates past its table and never fails.
type Curve []Point

// FromMap builds a Curve from a breakpoint mapping. Breakpoints are sorted by
// X; duplicate X values keep the last value seen.
func FromMap(points map[float64]float64) Curve {
	if len(points) == 0 {
		return nil
	}
	c := make(Curve, 0, len(points))
	for x, y := range points {
		c = append(c, Point{X: x, Y: y})
	}
	sort.Slice(c, func(i, j int) bool { return c[i].X < c[j].X })
	return c
}

// FromPoints builds a Curve from breakpoints, sorting them by X.
func FromPoints(points []Point) Curve {
	c := make(Curve, len(points))
	copy(c, points)
	sort.Slice(c, func(i, j int) bool { return c[i].X < c[j].X })
	return c
}

// Empty reports whether the curve has no breakpoints.
func (c Curve) Empty() bool {
	return len(c) == 0
}

// Lookup interpolates the curve at x. Outside the domain the nearest endpoint
// value is returned. An empty curve returns 0; callers that need a different
// fallback must check Empty first.
func (c Curve) Lookup(x float64) float64 {
	n := len(c)
	if n == 0 {
		return 0
	}
	if x <= c[0].X {
		return c[0].Y
	}
	if x >= c[n-1].X {
		return c[n-1].Y
	}
	// find the first breakpoint at or beyond x
	i := sort.Search(n, func(i int) bool { return c[i].X >= x })
	lo, hi := c[i-1], c[i]
	if hi.X == lo.X {
		return hi.Y
	}
	frac := (x - lo.X) / (hi.X - lo.X)
	return lo.Y + frac*(hi.Y-lo.Y)
}

// LookupInto interpolates the curve at every element of xs, writing results
// into dst. The batch engine uses this to evaluate a whole scenario row with
// one call per step. dst must be at least as long as xs.
func (c Curve) LookupInto(xs []float64, dst []float64) {
	for i, x := range xs {
		dst[i] = c.Lookup(x)
	}
}

// UnmarshalYAML accepts either a `x: y` mapping or a sequence of {x, y}
// entries, so profile files can use whichever reads better.
func (c *Curve) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		m := map[float64]float64{}
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("curve mapping: %w", err)
		}
		*c = FromMap(m)
		return nil
	case yaml.SequenceNode:
		var pts []Point
		if err := value.Decode(&pts); err != nil {
			return fmt.Errorf("curve sequence: %w", err)
		}
		*c = FromPoints(pts)
		return nil
	default:
		return fmt.Errorf("curve must be a mapping or a sequence, got %v", value.Kind)
	}
}

// MarshalYAML emits the mapping form.
func (c Curve) MarshalYAML() (interface{}, error) {
	m := make(map[float64]float64, len(c))
	for _, p := range c {
		m[p.X] = p.Y
	}
	return m, nil
}
