package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cqlkit/cqlmap/internal/cli/ui"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print CREATE TYPE statements for the configured user types",
		Long: `Print a CREATE TYPE IF NOT EXISTS statement for every user type declared in
the config. Nested types are emitted before the types that use them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			statements, err := mc.CreateUserTypesCQL()
			if err != nil {
				return err
			}
			if len(statements) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("no user types declared", noColor(cmd)))
				return nil
			}

			out := cmd.OutOrStdout()
			for i, stmt := range statements {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, stmt)
			}
			return nil
		},
	}
}
