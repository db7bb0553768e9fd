// Package extgen is the whitelist-config and type-inspection half of
// the FFI binding generator: it reads a build-time whitelist
// (`nova.yaml`'s `ffi:` section) naming Go packages and functions, and
// uses `golang.org/x/tools/go/packages` to type-check them and extract
// just enough signature information to emit
// `internal/ffi/generated_bindings.go`.
//
// Deliberately trimmed to functions only: there is no support for
// whole bound types (with methods and fields), constants, generics, or
// fluent-API auto-chaining, since the wire format
// (`internal/ffi/codec.go`) only ever marshals
// Unit/Int/Float/Bool/String across the host bridge, so a whitelisted
// function's parameters and results must all be one of those four
// primitive shapes.
package extgen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the decoded `ffi:` whitelist section.
type Config struct {
	Deps []Dep `yaml:"deps"`
}

// Dep names one Go package and the functions whitelisted from it.
type Dep struct {
	// Pkg is the Go import path (e.g. "strings", "os").
	Pkg string `yaml:"pkg"`

	// Funcs lists the standalone functions to whitelist from Pkg.
	Funcs []FuncSpec `yaml:"funcs"`
}

// FuncSpec names one function to whitelist and the name it is exposed
// under to `ffi_call` (e.g. Go's "ToUpper" as nova's "strings.ToUpper").
type FuncSpec struct {
	// Func is the Go function name (e.g. "ToUpper").
	Func string `yaml:"func"`

	// As is the name ffi_call dispatches on; defaults to "<pkg>.<Func>".
	As string `yaml:"as,omitempty"`
}

// LoadConfig reads and parses a whitelist file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extgen: reading %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes raw YAML bytes into a Config.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("extgen: parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate(path string) error {
	for i, dep := range c.Deps {
		if dep.Pkg == "" {
			return fmt.Errorf("extgen: %s: dep %d is missing pkg", path, i)
		}
		for j, fn := range dep.Funcs {
			if fn.Func == "" {
				return fmt.Errorf("extgen: %s: dep %q func %d is missing func", path, dep.Pkg, j)
			}
		}
	}
	return nil
}

// ResolvedName returns the name ffi_call dispatches on for fn within
// dep — its explicit As, or "<pkg>.<Func>" by default.
func (dep *Dep) ResolvedName(fn FuncSpec) string {
	if fn.As != "" {
		return fn.As
	}
	return dep.Pkg + "." + fn.Func
}
