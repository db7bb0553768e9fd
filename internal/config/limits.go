package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits is the runtime's resource-limit configuration: maximum
// concurrent tasks, maximum task wall-time, maximum per-task memory,
// and FFI call rate, loaded from YAML rather than hard-coded into
// generated code. The executor enforces the task count and wall-time
// limits and internal/ffi.Validator the call rate; the per-task memory
// ceiling is carried but not enforced (see MaxTaskMemoryBytes). A plain
// struct with yaml tags, a LoadLimits/ParseLimits pair, and a
// setDefaults pass.
type Limits struct {
	// MaxConcurrentTasks bounds how many tasks the executor's semaphore
	// admits at once; Spawn blocks (or, with a context deadline, fails)
	// past this point.
	MaxConcurrentTasks int64 `yaml:"max_concurrent_tasks"`

	// MaxTaskWallTime bounds how long a single task may run; exceeding
	// it cancels the task and its next poll observes a timeout error
	// rather than a panic.
	MaxTaskWallTime time.Duration `yaml:"max_task_wall_time"`

	// MaxTaskMemoryBytes is a per-task memory ceiling. It is parsed and
	// defaulted like the other limits, but nothing in the runtime reads
	// it: Executor.Spawn admits tasks by MaxConcurrentTasks alone, and no
	// task is refused or stopped for its memory use.
	MaxTaskMemoryBytes int64 `yaml:"max_task_memory_bytes"`

	// FFICallsPerSecond bounds the rate internal/ffi.Validator admits
	// foreign calls at; carried here so one manifest configures every
	// runtime limit.
	FFICallsPerSecond int `yaml:"ffi_calls_per_second"`
}

// limitsYAML mirrors Limits with MaxTaskWallTime spelled as a
// time.ParseDuration string ("30s", "500ms") since yaml.v3 has no
// built-in time.Duration support.
type limitsYAML struct {
	MaxConcurrentTasks int64  `yaml:"max_concurrent_tasks"`
	MaxTaskWallTime    string `yaml:"max_task_wall_time"`
	MaxTaskMemoryBytes int64  `yaml:"max_task_memory_bytes"`
	FFICallsPerSecond  int    `yaml:"ffi_calls_per_second"`
}

// UnmarshalYAML lets Limits be decoded directly by yaml.Unmarshal while
// still accepting a human-readable duration string for MaxTaskWallTime.
func (l *Limits) UnmarshalYAML(value *yaml.Node) error {
	var raw limitsYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	l.MaxConcurrentTasks = raw.MaxConcurrentTasks
	l.MaxTaskMemoryBytes = raw.MaxTaskMemoryBytes
	l.FFICallsPerSecond = raw.FFICallsPerSecond
	if raw.MaxTaskWallTime != "" {
		d, err := time.ParseDuration(raw.MaxTaskWallTime)
		if err != nil {
			return fmt.Errorf("max_task_wall_time: %w", err)
		}
		l.MaxTaskWallTime = d
	}
	return nil
}

// DefaultLimits returns conservative defaults suitable for a single
// compiled program run from the CLI.
func DefaultLimits() Limits {
	return Limits{
		MaxConcurrentTasks: 256,
		MaxTaskWallTime:    30 * time.Second,
		MaxTaskMemoryBytes: 512 << 20,
		FFICallsPerSecond:  1000,
	}
}

// LoadLimits reads and parses a YAML limits file.
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("reading limits config %s: %w", path, err)
	}
	return ParseLimits(data)
}

// ParseLimits parses YAML limits content from bytes, filling in
// DefaultLimits for any field left unset (zero-valued).
func ParseLimits(data []byte) (Limits, error) {
	lim := DefaultLimits()
	if err := yaml.Unmarshal(data, &lim); err != nil {
		return Limits{}, fmt.Errorf("parsing limits config: %w", err)
	}
	lim.setDefaults()
	return lim, nil
}

func (l *Limits) setDefaults() {
	d := DefaultLimits()
	if l.MaxConcurrentTasks <= 0 {
		l.MaxConcurrentTasks = d.MaxConcurrentTasks
	}
	if l.MaxTaskWallTime <= 0 {
		l.MaxTaskWallTime = d.MaxTaskWallTime
	}
	if l.MaxTaskMemoryBytes <= 0 {
		l.MaxTaskMemoryBytes = d.MaxTaskMemoryBytes
	}
	if l.FFICallsPerSecond <= 0 {
		l.FFICallsPerSecond = d.FFICallsPerSecond
	}
}
