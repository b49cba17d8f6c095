// Package coord implements the 12+1 dimensional coordinate space that Sigil
// particles live in.
//
// A Coord holds twelve bounded dimensions, each saturating to [Min, Max], and
// one uncertainty scalar nominally in [0, 1]. Uncertainty is never clamped
// here; operations that care about its range impose their own caps.
//
// All functions in this package are pure.
package coord

import (
	"math"
	"strconv"
	"strings"
)

const (
	// Min is the lower bound of every dimension.
	Min = 0.0
	// Max is the upper bound of every dimension.
	Max = 10.0

	// epsilon is the convergence bound of the Newton root and the magnitude
	// floor below which Similarity reports zero.
	epsilon = 0.001

	// maxRootIterations bounds the Newton loop. Sums reachable from clamped
	// coordinates converge in well under this many steps.
	maxRootIterations = 128
)

// Vector is the twelve bounded dimensions of a coordinate.
type Vector [Dims]float64

// Coord is a position in the 12+1 dimensional space.
type Coord struct {
	V           Vector
	Uncertainty float64
}

// Clamp saturates a single value to [Min, Max].
func Clamp(v float64) float64 {
	if v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return v
}

// Clamp returns a copy of v with every dimension saturated to [Min, Max].
func (v Vector) Clamp() Vector {
	for i := range v {
		v[i] = Clamp(v[i])
	}
	return v
}

// Add returns v[d] + delta saturated to [Min, Max].
func (v Vector) Add(d Dim, delta float64) float64 {
	return Clamp(v[d] + delta)
}

// IsZero reports whether every dimension is exactly zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Root computes a square root. The engine is parameterized over it so the
// historical Newton approximation and a precise root can be swapped.
type Root func(float64) float64

var (
	// Newton is the fixed-tolerance Newton iteration. It is the default.
	Newton Root = NewtonSqrt

	// Exact is the floating-point square root. Opt-in only: it changes
	// distance and similarity results relative to Newton.
	Exact Root = math.Sqrt
)

// NewtonSqrt approximates the square root of sum by iterating
// x = (x+y)/2, y = sum/x from x = sum, y = 1 while x-y > 0.001. The test is
// signed: a sum below 1 starts with x < y and is returned unchanged, so
// NewtonSqrt(0.25) is 0.25. Distances and similarities depend on that.
func NewtonSqrt(sum float64) float64 {
	if sum <= 0 {
		return 0
	}
	x, y := sum, 1.0
	for i := 0; i < maxRootIterations && x-y > epsilon; i++ {
		x = (x + y) / 2
		y = sum / x
	}
	return x
}

// Distance is the Euclidean distance over the twelve dimensions.
func (r Root) Distance(a, b Coord) float64 {
	var sum float64
	for i := 0; i < Dims; i++ {
		d := a.V[i] - b.V[i]
		sum += d * d
	}
	return r(sum)
}

// Similarity is the cosine similarity over the twelve dimensions. It is 0
// when either operand's magnitude is below 0.001.
func (r Root) Similarity(a, b Coord) float64 {
	var dot, ma, mb float64
	for i := 0; i < Dims; i++ {
		dot += a.V[i] * b.V[i]
		ma += a.V[i] * a.V[i]
		mb += b.V[i] * b.V[i]
	}
	ra, rb := r(ma), r(mb)
	if ra < epsilon || rb < epsilon {
		return 0
	}
	return dot / (ra * rb)
}

// Distance is Newton.Distance.
func Distance(a, b Coord) float64 {
	return Newton.Distance(a, b)
}

// Similarity is Newton.Similarity.
func Similarity(a, b Coord) float64 {
	return Newton.Similarity(a, b)
}

// WeightedAdd returns a + scale*b per dimension, saturated to [Min, Max].
// The uncertainty is copied from a.
func WeightedAdd(a, b Coord, scale float64) Coord {
	c := Coord{Uncertainty: a.Uncertainty}
	for i := 0; i < Dims; i++ {
		c.V[i] = Clamp(a.V[i] + b.V[i]*scale)
	}
	return c
}

// String formats the coordinate as [d0,...,d11] *u with two decimals.
func (c Coord) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range c.V {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(x, 'f', 2, 64))
	}
	sb.WriteString("] *")
	sb.WriteString(strconv.FormatFloat(c.Uncertainty, 'f', 2, 64))
	return sb.String()
}
