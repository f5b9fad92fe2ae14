// Package core executes derived statements against a Cassandra cluster
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/logging"
)

// ErrInvalidClusterConfig is returned for unusable connection settings
var ErrInvalidClusterConfig = errors.New("invalid cluster configuration")

// ClusterConfig holds connection settings
type ClusterConfig struct {
	Hosts       []string
	Keyspace    string
	Timeout     time.Duration
	Consistency string
}

var consistencies = map[string]gocql.Consistency{
	"any":          gocql.Any,
	"one":          gocql.One,
	"two":          gocql.Two,
	"three":        gocql.Three,
	"quorum":       gocql.Quorum,
	"all":          gocql.All,
	"local_quorum": gocql.LocalQuorum,
	"each_quorum":  gocql.EachQuorum,
	"local_one":    gocql.LocalOne,
}

// ParseConsistency converts a consistency name (quorum, LOCAL_ONE) to its level
func ParseConsistency(name string) (gocql.Consistency, error) {
	c, ok := consistencies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown consistency %q", ErrInvalidClusterConfig, name)
	}
	return c, nil
}

// NewClusterConfig validates cfg and builds the driver configuration
func NewClusterConfig(cfg ClusterConfig) (*gocql.ClusterConfig, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("%w: at least one host is required", ErrInvalidClusterConfig)
	}
	for _, h := range cfg.Hosts {
		if strings.TrimSpace(h) == "" {
			return nil, fmt.Errorf("%w: blank host", ErrInvalidClusterConfig)
		}
	}
	if strings.TrimSpace(cfg.Keyspace) == "" {
		return nil, fmt.Errorf("%w: keyspace is required", ErrInvalidClusterConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidClusterConfig)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.Consistency != "" {
		consistency, err := ParseConsistency(cfg.Consistency)
		if err != nil {
			return nil, err
		}
		cluster.Consistency = consistency
	}
	return cluster, nil
}

// Connect opens a session to the cluster
func Connect(ctx context.Context, cfg ClusterConfig, logger *zap.Logger) (*gocql.Session, error) {
	logger = logging.OrNop(logger)

	cluster, err := NewClusterConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("connecting to cluster",
		zap.Strings("hosts", cfg.Hosts),
		zap.String("keyspace", cfg.Keyspace),
		zap.Stringer("consistency", cluster.Consistency))

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", strings.Join(cfg.Hosts, ","), err)
	}
	return session, nil
}
