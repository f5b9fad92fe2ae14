package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/cqlkit/cqlmap/internal/cli/config"
	"github.com/cqlkit/cqlmap/internal/cli/ui"
)

var consistencyOptions = []string{"one", "local_one", "quorum", "local_quorum", "each_quorum", "all"}

var levelOptions = []string{"debug", "info", "warn", "error"}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		yes      bool
		force    bool
		keyspace string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a cqlmap.yaml in the current directory",
		Long: `Create a cqlmap.yaml with cluster, logging and server settings.

Without --yes the settings are asked for interactively.`,
		Example: `  cqlmap init
  cqlmap init --yes --keyspace shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if config.Exists(wd) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
			}

			cfg := defaultInitConfig()
			cfg.Cassandra.Keyspace = keyspace
			if !yes {
				if err := askInitConfig(cfg); err != nil {
					return err
				}
			}

			path := filepath.Join(wd, config.FileName)
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Wrote "+config.FileName, noColor(cmd))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&keyspace, "keyspace", "", "default keyspace")

	return cmd
}

func defaultInitConfig() *config.Config {
	return &config.Config{
		Cassandra: config.CassandraConfig{
			Hosts:       []string{"127.0.0.1"},
			Timeout:     5 * time.Second,
			Consistency: "quorum",
		},
		Logging: config.LoggingConfig{Level: "info"},
		Server:  config.ServerConfig{Address: ":9464"},
	}
}

func askInitConfig(cfg *config.Config) error {
	var answers struct {
		Hosts       string
		Keyspace    string
		Consistency string
		Level       string
	}

	questions := []*survey.Question{
		{
			Name:   "hosts",
			Prompt: &survey.Input{Message: "Cassandra hosts (comma separated):", Default: strings.Join(cfg.Cassandra.Hosts, ",")},
		},
		{
			Name:     "keyspace",
			Prompt:   &survey.Input{Message: "Keyspace:", Default: cfg.Cassandra.Keyspace},
			Validate: survey.Required,
		},
		{
			Name:   "consistency",
			Prompt: &survey.Select{Message: "Consistency level:", Options: consistencyOptions, Default: cfg.Cassandra.Consistency},
		},
		{
			Name:   "level",
			Prompt: &survey.Select{Message: "Log level:", Options: levelOptions, Default: cfg.Logging.Level},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Cassandra.Hosts = splitHosts(answers.Hosts)
	cfg.Cassandra.Keyspace = answers.Keyspace
	cfg.Cassandra.Consistency = answers.Consistency
	cfg.Logging.Level = answers.Level
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
