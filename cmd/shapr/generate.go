package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shapr-cms/shapr/internal/cli/config"
	"github.com/shapr-cms/shapr/internal/codegen"
)

var (
	generateOutput  string
	generateVerbose bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (default from shapr.yml)")
	generateCmd.Flags().BoolVar(&generateVerbose, "verbose", false, "Show every generated file")
}

var generateCmd = &cobra.Command{
	Use:   "generate [schema file]",
	Short: "Generate Go models, controllers and migrations from a schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		cliCfg, err := config.Load()
		if err != nil {
			return err
		}

		path, err := resolveSchemaPath(args)
		if err != nil {
			return err
		}
		cfg, err := loadSchemaConfig(path)
		if err != nil {
			return err
		}

		output := generateOutput
		if output == "" {
			output = cliCfg.Generate.Output
		}

		files, err := codegen.NewGenerator(cliCfg.Generate.Package).Generate(cfg)
		if err != nil {
			return fmt.Errorf("code generation failed: %w", err)
		}

		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			dest := filepath.Join(output, name)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
			}
			if err := os.WriteFile(dest, []byte(files[name]), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			if generateVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", dest)
			}
		}

		color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
			"✓ Generated %d file(s) from %d collection(s) in %v\n",
			len(files), len(cfg.Collections), time.Since(startTime).Round(time.Millisecond))
		return nil
	},
}
