package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cli/config"
	"github.com/cqlkit/cqlmap/internal/cli/ui"
	"github.com/cqlkit/cqlmap/internal/core"
	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/mapping"
)

// resolverFactory opens a user type resolver for the configured keyspace.
// The returned func releases the connection.
type resolverFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...mapping.ResolverOption) (mapping.UserTypeResolver, func(), error)

// newResolver is replaced in tests
var newResolver resolverFactory = connectResolver

func connectResolver(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...mapping.ResolverOption) (mapping.UserTypeResolver, func(), error) {
	session, err := core.Connect(ctx, cfg.ClusterConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]mapping.ResolverOption{mapping.WithResolverLogger(logger)}, opts...)
	resolver, err := mapping.NewSimpleUserTypeResolver(session, cfg.Cassandra.Keyspace, opts...)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return resolver, session.Close, nil
}

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "types [name]",
		Short: "Resolve user-defined types against the cluster",
		Long: `Resolve user-defined types from the keyspace's live schema metadata.

With a name, the type is looked up and its fields are printed; wrap the name
in double quotes for a case-sensitive lookup. Without a name, every user type
declared in the config is checked.`,
		Example: `  cqlmap types address
  cqlmap types '"Address"'
  cqlmap types --verify`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Cassandra.Keyspace) == "" {
				return errors.New("cassandra.keyspace is not set")
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			resolver, release, err := newResolver(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer release()

			if len(args) == 1 {
				return showUserType(cmd, resolver, args[0])
			}
			return checkUserTypes(cmd, cfg, resolver, logger, verify)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "compare declared fields with the cluster")

	return cmd
}

func showUserType(cmd *cobra.Command, resolver mapping.UserTypeResolver, raw string) error {
	name, err := cql.Of(raw)
	if err != nil {
		return err
	}

	udt, found, err := resolver.ResolveType(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("user type %s does not exist", name.ToCql())
	}

	kv := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor(cmd))
	kv.AddRow("Keyspace", udt.Keyspace)
	kv.AddRow("Type", udt.Name)
	kv.AddRow("Fields", strings.Join(udt.FieldNames, ", "))
	kv.Render()
	return nil
}

func checkUserTypes(cmd *cobra.Command, cfg *config.Config, resolver mapping.UserTypeResolver, logger *zap.Logger, verify bool) error {
	mc, err := cfg.MappingContext(logger)
	if err != nil {
		return err
	}

	declared := mc.UserTypes()
	if len(declared) == 0 {
		fmt.Fprint(cmd.OutOrStdout(), ui.Warning("no user types declared in "+config.FileName, noColor(cmd)))
		return nil
	}

	table := ui.NewTable(cmd.OutOrStdout(), []string{"Type", "Status", "Fields"}, &ui.TableOptions{NoColor: noColor(cmd)})
	missing := 0
	for _, entity := range declared {
		udt, found, err := resolver.ResolveType(entity.TypeName())
		if err != nil {
			return err
		}
		if !found {
			missing++
			table.AddRow(entity.TypeName().ToCql(), "missing")
			continue
		}
		table.AddRow(entity.TypeName().ToCql(), "found", strings.Join(udt.FieldNames, ", "))
	}
	table.Render()

	if verify {
		if err := mc.VerifyUserTypes(resolver); err != nil {
			return err
		}
		ui.WriteSuccess(cmd.OutOrStdout(), "declared user types match the cluster", noColor(cmd))
		return nil
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d user types are missing", missing, len(declared))
	}
	return nil
}

