package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cqlkit/cqlmap/internal/core"
	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/mapping"
)

// FileName is the configuration file looked up in the working directory
const FileName = "cqlmap.yaml"

// EnvPrefix prefixes environment overrides (CQLMAP_CASSANDRA_KEYSPACE)
const EnvPrefix = "CQLMAP"

// Config represents the cqlmap configuration
type Config struct {
	Cassandra CassandraConfig `mapstructure:"cassandra"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	UserTypes []EntityConfig  `mapstructure:"user_types"`
	Entities  []EntityConfig  `mapstructure:"entities"`
}

// CassandraConfig represents cluster connection settings
type CassandraConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Keyspace    string        `mapstructure:"keyspace"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Consistency string        `mapstructure:"consistency"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig represents the diagnostics server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// EntityConfig declares a table entity or, under user_types, a UDT
type EntityConfig struct {
	Name       string           `mapstructure:"name"`
	Table      string           `mapstructure:"table"`
	ForceQuote bool             `mapstructure:"force_quote"`
	Properties []PropertyConfig `mapstructure:"properties"`
}

// PropertyConfig declares one property of an entity
type PropertyConfig struct {
	Name   string `mapstructure:"name"`
	Column string `mapstructure:"column"`
	Type   string `mapstructure:"type"`
	Key    string `mapstructure:"key"`
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("cassandra.hosts", []string{"127.0.0.1"})
	v.SetDefault("cassandra.keyspace", "")
	v.SetDefault("cassandra.timeout", 5*time.Second)
	v.SetDefault("cassandra.consistency", "quorum")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("server.address", ":9464")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads cqlmap.yaml from the working directory, falling back to defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path. An empty path searches the
// working directory and tolerates a missing file; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save writes the connection, logging and server sections to path
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.Set("cassandra.hosts", cfg.Cassandra.Hosts)
	v.Set("cassandra.keyspace", cfg.Cassandra.Keyspace)
	v.Set("cassandra.timeout", cfg.Cassandra.Timeout.String())
	v.Set("cassandra.consistency", cfg.Cassandra.Consistency)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.development", cfg.Logging.Development)
	v.Set("server.address", cfg.Server.Address)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present in dir
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// ClusterConfig returns the connection settings for core.Connect
func (c *Config) ClusterConfig() core.ClusterConfig {
	return core.ClusterConfig{
		Hosts:       c.Cassandra.Hosts,
		Keyspace:    c.Cassandra.Keyspace,
		Timeout:     c.Cassandra.Timeout,
		Consistency: c.Cassandra.Consistency,
	}
}

// MappingContext registers the declared user types, in file order, and then
// the declared entities
func (c *Config) MappingContext(logger *zap.Logger) (*mapping.Context, error) {
	opts := []mapping.ContextOption{mapping.WithLogger(logger)}
	if c.Cassandra.Keyspace != "" {
		keyspace, err := cql.Of(c.Cassandra.Keyspace)
		if err != nil {
			return nil, fmt.Errorf("cassandra.keyspace: %w", err)
		}
		opts = append(opts, mapping.WithKeyspace(keyspace))
	}
	mc := mapping.NewContext(opts...)

	for _, ut := range c.UserTypes {
		if _, err := mc.RegisterDefinition(ut.definition(true)); err != nil {
			return nil, fmt.Errorf("user_types: %w", err)
		}
	}
	for _, e := range c.Entities {
		if _, err := mc.RegisterDefinition(e.definition(false)); err != nil {
			return nil, fmt.Errorf("entities: %w", err)
		}
	}
	return mc, nil
}

func (e EntityConfig) definition(userType bool) mapping.EntityDefinition {
	def := mapping.EntityDefinition{
		Name:       e.Name,
		Table:      e.Table,
		UserType:   userType,
		ForceQuote: e.ForceQuote,
		Properties: make([]mapping.PropertyDefinition, len(e.Properties)),
	}
	for i, p := range e.Properties {
		def.Properties[i] = mapping.PropertyDefinition{
			Name:   p.Name,
			Column: p.Column,
			Type:   p.Type,
			Key:    p.Key,
		}
	}
	return def
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Cassandra.Timeout < 0 {
		return fmt.Errorf("cassandra.timeout must not be negative, got: %s", cfg.Cassandra.Timeout)
	}
	if cfg.Cassandra.Consistency != "" {
		if _, err := core.ParseConsistency(cfg.Cassandra.Consistency); err != nil {
			return fmt.Errorf("cassandra.consistency: %w", err)
		}
	}
	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	seen := make(map[string]bool)
	for _, section := range []struct {
		key      string
		entities []EntityConfig
	}{{"user_types", cfg.UserTypes}, {"entities", cfg.Entities}} {
		for i, e := range section.entities {
			if strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("%s[%d]: name is required", section.key, i)
			}
			if seen[e.Name] {
				return fmt.Errorf("%s[%d]: duplicate name %s", section.key, i, e.Name)
			}
			seen[e.Name] = true
			if len(e.Properties) == 0 {
				return fmt.Errorf("%s[%d]: %s declares no properties", section.key, i, e.Name)
			}
		}
	}
	return nil
}
