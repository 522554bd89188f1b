// Package config builds pipelines from YAML topology descriptions. A
// topology names its blocks, the task type each block runs, the thread and
// buffer sizing, and the output-to-input bindings between blocks. Task
// types are resolved through a registry.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/pipekit/errors"
)

// Config is a pipeline topology description.
type Config struct {
	// Name identifies the pipeline in logs and metrics.
	Name string `yaml:"name"`

	Blocks   []BlockConfig   `yaml:"blocks"`
	Bindings []BindingConfig `yaml:"bindings"`
}

// BlockConfig describes one block of the topology.
type BlockConfig struct {
	// Name is the block name, unique within the pipeline. Defaults to the
	// task type name.
	Name string `yaml:"name"`

	// Task is the registered task type the block runs.
	Task string `yaml:"task"`

	// Threads is the worker thread count. Defaults to 1.
	Threads int `yaml:"threads"`

	// Buffer is the socket capacity. Defaults to the thread count.
	Buffer int `yaml:"buffer"`
}

// BindingConfig connects one block output to another block input. Both
// ends use "block.endpoint" notation.
type BindingConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Parse decodes a YAML topology and applies defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("parsing topology YAML: %w", err),
			"Config", "Parse", "YAML decoding")
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a topology file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapNotFound(
			fmt.Errorf("reading topology file %q: %w", path, err),
			"Config", "Load", "file read")
	}
	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "pipeline"
	}
	for i := range c.Blocks {
		b := &c.Blocks[i]
		if b.Name == "" {
			b.Name = b.Task
		}
		if b.Threads == 0 {
			b.Threads = 1
		}
		if b.Buffer == 0 {
			b.Buffer = b.Threads
		}
	}
}

// Validate checks the topology shape before any task is instantiated.
// Sizing constraints are re-checked by block construction; this catches
// the errors a topology author can fix without knowing the task types.
func (c *Config) Validate() error {
	if len(c.Blocks) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("topology %q has no blocks: %w", c.Name, errors.ErrInvalidArgument),
			"Config", "Validate", "topology check")
	}

	seen := make(map[string]bool, len(c.Blocks))
	for _, b := range c.Blocks {
		if b.Task == "" {
			return errors.WrapInvalid(
				fmt.Errorf("block %q has no task type: %w", b.Name, errors.ErrInvalidArgument),
				"Config", "Validate", "block check")
		}
		if seen[b.Name] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate block name %q: %w", b.Name, errors.ErrInvalidArgument),
				"Config", "Validate", "block check")
		}
		seen[b.Name] = true

		if b.Threads < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("block %q: 'threads' has to be strictly positive ('threads' = %d): %w",
					b.Name, b.Threads, errors.ErrInvalidArgument),
				"Config", "Validate", "block check")
		}
		if b.Buffer < b.Threads {
			return errors.WrapInvalid(
				fmt.Errorf("block %q: 'buffer' has to be greater or equal to 'threads' "+
					"('buffer' = %d, 'threads' = %d): %w",
					b.Name, b.Buffer, b.Threads, errors.ErrInvalidArgument),
				"Config", "Validate", "block check")
		}
	}

	for _, bd := range c.Bindings {
		if _, _, err := splitEndpoint(bd.From); err != nil {
			return err
		}
		if _, _, err := splitEndpoint(bd.To); err != nil {
			return err
		}
	}

	return nil
}

// splitEndpoint parses "block.endpoint" notation.
func splitEndpoint(ref string) (blockName, endpointName string, err error) {
	blockName, endpointName, ok := strings.Cut(ref, ".")
	if !ok || blockName == "" || endpointName == "" {
		return "", "", errors.WrapInvalid(
			fmt.Errorf("binding endpoint %q is not in 'block.endpoint' form: %w",
				ref, errors.ErrInvalidArgument),
			"Config", "Validate", "binding check")
	}
	return blockName, endpointName, nil
}
