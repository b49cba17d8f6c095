package coord

import "fmt"

// Dims is the number of bounded dimensions in a coordinate.
const Dims = 12

// Dim identifies one of the twelve bounded dimensions.
type Dim int

const (
	Capability     Dim = 0
	Data           Dim = 1
	Presentation   Dim = 2
	Persistence    Dim = 3
	Security       Dim = 4
	Detail         Dim = 5
	Output         Dim = 6
	Intention      Dim = 7
	Consciousness  Dim = 8
	Transformation Dim = 9
	Direction      Dim = 10
	Memory         Dim = 11
)

var dimNames = [Dims]string{
	"capability", "data", "presentation", "persistence",
	"security", "detail", "output", "intention",
	"consciousness", "transformation", "direction", "memory",
}

var dimPlanets = [Dims]string{
	"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter",
	"Saturn", "Uranus", "Neptune", "Pluto", "NNode", "SNode",
}

// String returns the dimension's DSL name.
func (d Dim) String() string {
	if d < 0 || int(d) >= Dims {
		return fmt.Sprintf("Dim(%d)", int(d))
	}
	return dimNames[d]
}

// Planet returns the planetary correspondence of the dimension.
func (d Dim) Planet() string {
	if d < 0 || int(d) >= Dims {
		return ""
	}
	return dimPlanets[d]
}

// DimByName looks up a dimension by its exact DSL name.
func DimByName(name string) (Dim, bool) {
	for i, n := range dimNames {
		if n == name {
			return Dim(i), true
		}
	}
	return 0, false
}

// AllDims returns every dimension in index order.
func AllDims() []Dim {
	dims := make([]Dim, Dims)
	for i := range dims {
		dims[i] = Dim(i)
	}
	return dims
}
