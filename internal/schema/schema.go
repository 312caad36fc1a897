// Package schema loads the physical schema of the data source.
package schema

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

//go:embed schema.yaml
var defaultSchema []byte

// Default returns the embedded store schema.
func Default() (*core.Schema, error) {
	return Parse(defaultSchema)
}

// Load reads a schema file. An empty path returns the embedded schema.
func Load(path string) (*core.Schema, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML schema document.
func Parse(data []byte) (*core.Schema, error) {
	var s core.Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(s.Collections) == 0 {
		return nil, fmt.Errorf("schema declares no collections")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &s, nil
}
