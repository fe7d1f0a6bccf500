package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateVerbose bool

func init() {
	validateCmd.Flags().BoolVar(&validateVerbose, "verbose", false, "List every field of every collection")
}

var validateCmd = &cobra.Command{
	Use:   "validate [schema file]",
	Short: "Parse and validate a schema file",
	Long:  "Parse the schema file and report every collection it defines, or the first error found",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSchemaPath(args)
		if err != nil {
			return err
		}

		cfg, err := loadSchemaConfig(path)
		if err != nil {
			color.New(color.FgRed, color.Bold).Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
			return fmt.Errorf("schema validation failed")
		}

		green := color.New(color.FgGreen, color.Bold)
		green.Fprintf(cmd.OutOrStdout(), "✓ %s: %d collection(s)\n", path, len(cfg.Collections))

		for i := range cfg.Collections {
			coll := &cfg.Collections[i]
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (slug %q, %d fields)\n", coll.Name, coll.Slug, len(coll.Fields))
			if !validateVerbose {
				continue
			}
			for j := range coll.Fields {
				f := &coll.Fields[j]
				required := ""
				if f.Required {
					required = " required"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "    %-20s %s%s\n", f.Name, f.Kind.String(), required)
			}
		}
		return nil
	},
}
