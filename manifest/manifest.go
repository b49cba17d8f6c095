// Package manifest handles prima.toml configuration.
//
// Configuration is layered: built-in defaults, then prima.toml, then PRIMA_*
// environment variables. The result is checked against an embedded CUE
// schema before use.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "prima.toml"

// Manifest represents a prima.toml configuration.
type Manifest struct {
	Field FieldConfig `toml:"field" json:"field" envPrefix:"FIELD_"`
	VM    VMConfig    `toml:"vm" json:"vm" envPrefix:"VM_"`
	Log   LogConfig   `toml:"log" json:"log" envPrefix:"LOG_"`

	// Dir is the directory containing the prima.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// FieldConfig sizes the particle and edge tables.
type FieldConfig struct {
	Particles int `toml:"particles" json:"particles" env:"PARTICLES"`
	Edges     int `toml:"edges" json:"edges" env:"EDGES"`
}

// VMConfig configures the executor.
type VMConfig struct {
	Sqrt   string `toml:"sqrt" json:"sqrt" env:"SQRT"`       // "newton" or "exact"
	Trace  bool   `toml:"trace" json:"trace" env:"TRACE"`    // trace every step
	Output string `toml:"output" json:"output" env:"OUTPUT"` // "text" or "cbor"
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity" env:"VERBOSITY"`
	Path      string `toml:"path" json:"path" env:"PATH"`
}

// Default returns the configuration used when no prima.toml exists.
func Default() *Manifest {
	return &Manifest{
		Field: FieldConfig{
			Particles: field.DefaultMaxParticles,
			Edges:     field.DefaultMaxEdges,
		},
		VM: VMConfig{
			Sqrt:   "newton",
			Output: "text",
		},
	}
}

// Load parses a prima.toml file from the given directory. Keys missing from
// the file keep their defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a prima.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Resolve builds the effective configuration for startDir: the nearest
// prima.toml (or the defaults), overlaid with the process environment, then
// validated.
func Resolve(startDir string) (*Manifest, error) {
	m, err := FindAndLoad(startDir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = Default()
	}
	if err := ApplyEnv(m); err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Root returns the square root selected by vm.sqrt.
func (m *Manifest) Root() coord.Root {
	if m.VM.Sqrt == "exact" {
		return coord.Exact
	}
	return coord.Newton
}

// FieldOptions returns the options that size a new Field.
func (m *Manifest) FieldOptions() []field.Option {
	return []field.Option{field.WithLimits(m.Field.Particles, m.Field.Edges)}
}

// LogPath returns the log file path, or nil to log to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.Path == "" {
		return nil
	}
	path := m.Log.Path
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
