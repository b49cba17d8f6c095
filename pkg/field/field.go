// Package field holds the store every Sigil particle lives in.
//
// A Field is an arena: particles and program edges are appended and never
// removed. Both tables have a fixed limit; exceeding it is reported as a
// *CapacityError and never drops or overwrites an existing entry.
//
// A Field is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package field

import (
	"errors"
	"fmt"

	"github.com/chazu/prima/pkg/coord"
)

const (
	// DefaultMaxParticles is the particle limit of a Field built without options.
	DefaultMaxParticles = 1024
	// DefaultMaxEdges is the edge limit of a Field built without options.
	DefaultMaxEdges = 4096

	// InitialGlobalUncertainty is the global uncertainty of a fresh Field.
	InitialGlobalUncertainty = 0.3

	minGlobalUncertainty = 0.01
	maxGlobalUncertainty = 0.99
)

// ErrCapacity is matched by every *CapacityError.
var ErrCapacity = errors.New("field capacity exceeded")

// CapacityError reports a full particle or edge table.
type CapacityError struct {
	Table string // "particles" or "edges"
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("field: %s table full (limit %d)", e.Table, e.Limit)
}

// Is makes errors.Is(err, ErrCapacity) hold for any CapacityError.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// Domain is the tag a particle carries.
type Domain uint8

const (
	Morph Domain = 0
	Work  Domain = 1
	Salt  Domain = 2
	Vault Domain = 3
)

func (d Domain) String() string {
	switch d {
	case Morph:
		return ".morph"
	case Work:
		return ".work"
	case Salt:
		return ".salt"
	case Vault:
		return ".vault"
	default:
		return fmt.Sprintf("Domain(%d)", uint8(d))
	}
}

// Particle is an entity positioned in coordinate space.
type Particle struct {
	ID       uint32
	Pos      coord.Coord
	Momentum coord.Coord // carried, never mutated by any operation
	Alive    bool
	Domain   Domain
	Sealed   bool
}

// Edge links two operation indices of a program with a weight vector.
type Edge struct {
	From    uint16
	To      uint16
	Weights coord.Coord
}

// Stats is a snapshot of the Field's aggregate counters.
type Stats struct {
	Particles         int
	Edges             int
	Tick              uint64
	PredictionError   float64
	GlobalUncertainty float64
}

// Field is the particle and edge store plus run statistics.
type Field struct {
	maxParticles int
	maxEdges     int

	particles []Particle
	edges     []Edge
	edgeSet   map[Edge]struct{}
	nextID    uint32

	// Tick counts executed operations across all runs.
	Tick uint64
	// PredictionError is the exponentially smoothed step error.
	PredictionError float64
	// GlobalUncertainty is the system-wide uncertainty estimate.
	GlobalUncertainty float64
}

// Option configures a Field.
type Option func(*Field)

// WithLimits overrides the particle and edge limits. Non-positive values
// keep the default.
func WithLimits(particles, edges int) Option {
	return func(f *Field) {
		if particles > 0 {
			f.maxParticles = particles
		}
		if edges > 0 {
			f.maxEdges = edges
		}
	}
}

// New creates an empty Field.
func New(opts ...Option) *Field {
	f := &Field{
		maxParticles:      DefaultMaxParticles,
		maxEdges:          DefaultMaxEdges,
		edgeSet:           make(map[Edge]struct{}),
		nextID:            1,
		GlobalUncertainty: InitialGlobalUncertainty,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create appends a particle at pos with zero momentum, alive, in .morph and
// unsealed. It returns the particle's index.
func (f *Field) Create(pos coord.Coord) (int, error) {
	if len(f.particles) >= f.maxParticles {
		return -1, &CapacityError{Table: "particles", Limit: f.maxParticles}
	}
	f.particles = append(f.particles, Particle{
		ID:     f.nextID,
		Pos:    pos,
		Alive:  true,
		Domain: Morph,
	})
	f.nextID++
	return len(f.particles) - 1, nil
}

// Connect appends a program edge and returns its index.
func (f *Field) Connect(from, to uint16, weights coord.Coord) (int, error) {
	if len(f.edges) >= f.maxEdges {
		return -1, &CapacityError{Table: "edges", Limit: f.maxEdges}
	}
	e := Edge{From: from, To: to, Weights: weights}
	f.edges = append(f.edges, e)
	f.edgeSet[e] = struct{}{}
	return len(f.edges) - 1, nil
}

// Admit creates a particle at pos and registers the edges of the program it
// runs. Edges already in the Field are not added again, so running the same
// program twice leaves the edge table unchanged. Admit is all or nothing: on
// a *CapacityError neither table is modified. It returns the particle index
// and the number of edges added.
func (f *Field) Admit(pos coord.Coord, edges []Edge) (idx, added int, err error) {
	if len(f.particles) >= f.maxParticles {
		return -1, 0, &CapacityError{Table: "particles", Limit: f.maxParticles}
	}

	var fresh []Edge
	seen := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		if _, ok := f.edgeSet[e]; ok {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		fresh = append(fresh, e)
	}
	if len(f.edges)+len(fresh) > f.maxEdges {
		return -1, 0, &CapacityError{Table: "edges", Limit: f.maxEdges}
	}

	for _, e := range fresh {
		f.edges = append(f.edges, e)
		f.edgeSet[e] = struct{}{}
	}
	idx, err = f.Create(pos)
	return idx, len(fresh), err
}

// FindNearest returns the index of the alive particle most similar to query
// under the Newton root. Ties go to the lowest index. It reports false when
// no particle is alive.
func (f *Field) FindNearest(query coord.Coord) (int, bool) {
	return f.FindNearestWith(coord.Newton, query)
}

// FindNearestWith is FindNearest with similarity computed under root, so a
// caller running with coord.Exact ranks particles the way its runs measure
// them.
func (f *Field) FindNearestWith(root coord.Root, query coord.Coord) (int, bool) {
	best := -1
	bestSim := -1.0
	for i := range f.particles {
		if !f.particles[i].Alive {
			continue
		}
		if sim := root.Similarity(query, f.particles[i].Pos); sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return best, best >= 0
}

// Particle returns the particle at index i. It panics if i is out of range.
func (f *Field) Particle(i int) *Particle {
	return &f.particles[i]
}

// Edge returns the edge at index i. It panics if i is out of range.
func (f *Field) Edge(i int) Edge {
	return f.edges[i]
}

// Len returns the number of particles.
func (f *Field) Len() int {
	return len(f.particles)
}

// EdgeLen returns the number of edges.
func (f *Field) EdgeLen() int {
	return len(f.edges)
}

// Limits returns the particle and edge limits.
func (f *Field) Limits() (particles, edges int) {
	return f.maxParticles, f.maxEdges
}

// Observe folds one step's prediction error into the smoothed error and
// moves the global uncertainty toward err/20, clamped to [0.01, 0.99].
func (f *Field) Observe(err float64) {
	f.PredictionError = f.PredictionError*0.9 + err*0.1
	f.GlobalUncertainty += (err/20 - f.GlobalUncertainty) * 0.1
	if f.GlobalUncertainty < minGlobalUncertainty {
		f.GlobalUncertainty = minGlobalUncertainty
	}
	if f.GlobalUncertainty > maxGlobalUncertainty {
		f.GlobalUncertainty = maxGlobalUncertainty
	}
}

// Stats returns the current aggregate counters.
func (f *Field) Stats() Stats {
	return Stats{
		Particles:         len(f.particles),
		Edges:             len(f.edges),
		Tick:              f.Tick,
		PredictionError:   f.PredictionError,
		GlobalUncertainty: f.GlobalUncertainty,
	}
}
