package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shapr-cms/shapr/internal/cli/ui"
	"github.com/shapr-cms/shapr/internal/schema"
)

var describeSchema string

func init() {
	describeCmd.Flags().StringVar(&describeSchema, "schema", "", "Schema file (default from shapr.yml)")
}

var describeCmd = &cobra.Command{
	Use:   "describe [collection]",
	Short: "Show the collections a schema defines",
	Long:  "List every collection in the schema, or the full field table of one collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pathArgs []string
		if describeSchema != "" {
			pathArgs = []string{describeSchema}
		}
		path, err := resolveSchemaPath(pathArgs)
		if err != nil {
			return err
		}
		cfg, err := loadSchemaConfig(path)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			table := ui.NewTable(cmd.OutOrStdout(), []string{"NAME", "SLUG", "FIELDS", "TIMESTAMPS"}, nil)
			for i := range cfg.Collections {
				coll := &cfg.Collections[i]
				table.AddRow(coll.Name, coll.Slug,
					strconv.Itoa(len(coll.Fields)), strconv.FormatBool(coll.Timestamps))
			}
			table.Render()
			return nil
		}

		coll := cfg.ByName(args[0])
		if coll == nil {
			coll = cfg.BySlug(args[0])
		}
		if coll == nil {
			candidates := make([]string, 0, len(cfg.Collections))
			for i := range cfg.Collections {
				candidates = append(candidates, cfg.Collections[i].Name)
			}
			msg := fmt.Sprintf("collection %q not found in %s", args[0], path)
			if similar := ui.FindSimilar(args[0], candidates, nil); len(similar) > 0 {
				msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(similar, ", "))
			}
			return fmt.Errorf("%s", msg)
		}

		describeCollection(cmd, coll)
		return nil
	},
}

func describeCollection(cmd *cobra.Command, coll *schema.CollectionDefinition) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (slug %q)\n", coll.Name, coll.Slug)
	fmt.Fprintf(out, "access: create=%s read=%s update=%s delete=%s\n\n",
		coll.Access.Create.String(), coll.Access.Read.String(),
		coll.Access.Update.String(), coll.Access.Delete.String())

	table := ui.NewTable(out, []string{"FIELD", "TYPE", "REQUIRED", "UNIQUE"}, nil)
	for i := range coll.Fields {
		f := &coll.Fields[i]
		table.AddRow(f.Name, f.Kind.String(),
			strconv.FormatBool(f.Required), strconv.FormatBool(f.Unique))
	}
	table.Render()
}
