package manifest

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every configuration environment variable, for example
// PRIMA_VM_SQRT or PRIMA_FIELD_PARTICLES.
const EnvPrefix = "PRIMA_"

// ApplyEnv overlays PRIMA_* variables from the process environment onto m.
// Unset variables leave the current values alone.
func ApplyEnv(m *Manifest) error {
	return applyEnv(m, env.Options{Prefix: EnvPrefix})
}

// ApplyEnvFrom is ApplyEnv over an explicit environment.
func ApplyEnvFrom(m *Manifest, environ map[string]string) error {
	return applyEnv(m, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func applyEnv(m *Manifest, opts env.Options) error {
	if err := env.ParseWithOptions(m, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
