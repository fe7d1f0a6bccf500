package main

import (
	"fmt"
	"os"

	"github.com/shapr-cms/shapr/internal/cli/config"
	"github.com/shapr-cms/shapr/internal/dsl"
	"github.com/shapr-cms/shapr/internal/schema"
)

// resolveSchemaPath returns the schema file to use: the explicit argument
// when given, otherwise the path from shapr.yml.
func resolveSchemaPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Schema, nil
}

// loadSchemaConfig reads and parses the schema file at path.
func loadSchemaConfig(path string) (schema.Config, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return schema.Config{}, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	cfg, err := dsl.Parse(string(source))
	if err != nil {
		return schema.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
