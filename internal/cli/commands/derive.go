package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cqlkit/cqlmap/internal/cli/ui"
	"github.com/cqlkit/cqlmap/internal/core"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/query"
)

// NewDeriveCommand creates the derive command
func NewDeriveCommand() *cobra.Command {
	var (
		format         string
		allowFiltering bool
	)

	cmd := &cobra.Command{
		Use:   "derive <entity> <method> [args...]",
		Short: "Derive the CQL statement for a repository method name",
		Long: `Parse a repository method name against an entity declared in the config
and print the criteria and the CQL statement it derives. No cluster is
contacted. IN arguments are comma separated; with no arguments the values
are left empty.`,
		Example: `  cqlmap derive Person findByLastNameAndFirstName Doe John
  cqlmap derive Person findTop10ByAgeGreaterThanOrderByLastNameAsc 30
  cqlmap derive Person countByLastNameIn Doe,Roe --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			mc, err := cfg.MappingContext(logger)
			if err != nil {
				return err
			}

			entityName, method := args[0], args[1]
			plan, err := core.NewDryRunTemplate(mc, core.WithLogger(logger)).Derive(entityName, method, args[2:], allowFiltering)
			if err != nil {
				reportDeriveError(cmd, mc, entityName, method, err)
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan.Describe())
			}
			renderPlan(cmd, plan.Describe())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVar(&allowFiltering, "allow-filtering", false, "append ALLOW FILTERING")

	return cmd
}

func renderPlan(cmd *cobra.Command, d core.PlanDescription) {
	out := cmd.OutOrStdout()
	nc := noColor(cmd)

	ui.Header(out, d.Entity+"."+d.Method, nc)

	kv := ui.NewKeyValueTable(out, nc)
	kv.AddRow("Action", d.Action)
	if d.Distinct {
		kv.AddRow("Distinct", "yes")
	}
	if d.Limit > 0 {
		kv.AddRow("Limit", fmt.Sprint(d.Limit))
	}
	if len(d.OrderBy) > 0 {
		kv.AddRow("Order by", strings.Join(d.OrderBy, ", "))
	}
	kv.Render()
	fmt.Fprintln(out)

	if len(d.Parts) > 0 {
		table := ui.NewTable(out, []string{"Property", "Column", "Keyword"}, &ui.TableOptions{NoColor: nc})
		for _, p := range d.Parts {
			table.AddRow(p.Property, p.Column, p.Keyword)
		}
		table.Render()
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, d.CQL)
	if len(d.Values) > 0 {
		fmt.Fprintf(out, "values: %v\n", d.Values)
	}
}

func reportDeriveError(cmd *cobra.Command, mc *mapping.Context, entityName, method string, err error) {
	nc := noColor(cmd)
	stderr := cmd.ErrOrStderr()

	if errors.Is(err, mapping.ErrEntityNotFound) {
		var names []string
		for _, e := range mc.Entities() {
			names = append(names, e.Name())
		}
		fmt.Fprint(stderr, ui.EntityNotFoundError(entityName, ui.FindSimilar(entityName, names, nil), nc))
		return
	}

	if !query.IsQueryCreationError(err) {
		return
	}

	var suggestions []string
	if prop, ok := query.UnknownProperty(err); ok {
		if entity, found := mc.Entity(entityName); found {
			var names []string
			for _, p := range entity.Properties() {
				names = append(names, p.Name)
			}
			suggestions = ui.FindSimilar(prop, names, nil)
		}
	}

	var qce *query.QueryCreationError
	detail := err.Error()
	if errors.As(err, &qce) {
		detail = qce.Err.Error()
	}
	fmt.Fprint(stderr, ui.QueryCreationError(method, detail, suggestions, nc))
}
