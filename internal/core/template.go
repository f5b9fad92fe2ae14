package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/logging"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/metrics"
	"github.com/cqlkit/cqlmap/internal/query"
)

// ErrNoSession is returned when a template is built without a session
var ErrNoSession = errors.New("no cluster session")

// executor runs statements; sessionExecutor is the only production
// implementation
type executor interface {
	rows(ctx context.Context, stmt *query.Statement) ([]map[string]interface{}, error)
	scan(ctx context.Context, stmt *query.Statement, dest ...interface{}) error
	exec(ctx context.Context, stmt *query.Statement) error
}

type sessionExecutor struct {
	session *gocql.Session
}

func (s sessionExecutor) rows(ctx context.Context, stmt *query.Statement) ([]map[string]interface{}, error) {
	return s.session.Query(stmt.Query, stmt.Values...).IterContext(ctx).SliceMap()
}

func (s sessionExecutor) scan(ctx context.Context, stmt *query.Statement, dest ...interface{}) error {
	return s.session.Query(stmt.Query, stmt.Values...).ScanContext(ctx, dest...)
}

func (s sessionExecutor) exec(ctx context.Context, stmt *query.Statement) error {
	return s.session.Query(stmt.Query, stmt.Values...).ExecContext(ctx)
}

// Template runs derived statements and exposes the mapping context they
// were derived from. It implements query.Operations.
type Template struct {
	exec    executor
	session *gocql.Session
	mapping *mapping.Context
	logger  *zap.Logger
	metrics *metrics.Collector
}

var _ query.Operations = (*Template)(nil)

// TemplateOption configures a Template
type TemplateOption func(*Template)

// WithLogger sets the template's logger
func WithLogger(logger *zap.Logger) TemplateOption {
	return func(t *Template) {
		t.logger = logging.OrNop(logger)
	}
}

// WithMetrics records every executed statement
func WithMetrics(m *metrics.Collector) TemplateOption {
	return func(t *Template) {
		t.metrics = m
	}
}

// NewTemplate creates a template over an open session
func NewTemplate(session *gocql.Session, mc *mapping.Context, opts ...TemplateOption) (*Template, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	t := newTemplate(sessionExecutor{session: session}, mc, opts...)
	t.session = session
	return t, nil
}

func newTemplate(exec executor, mc *mapping.Context, opts ...TemplateOption) *Template {
	if mc == nil {
		mc = mapping.NewContext()
	}
	t := &Template{
		exec:    exec,
		mapping: mc,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MappingContext returns the mapping context
func (t *Template) MappingContext() *mapping.Context {
	return t.mapping
}

// UserTypeResolver returns a resolver reading the session's live metadata
func (t *Template) UserTypeResolver(keyspace string, opts ...mapping.ResolverOption) (*mapping.SimpleUserTypeResolver, error) {
	if t.session == nil {
		return nil, ErrNoSession
	}
	return mapping.NewSimpleUserTypeResolver(t.session, keyspace, opts...)
}

// Select returns all rows matched by stmt
func (t *Template) Select(ctx context.Context, stmt *query.Statement) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := t.run(ctx, query.ActionSelect, stmt, func() error {
		var err error
		rows, err = t.exec.rows(ctx, stmt)
		return err
	})
	return rows, err
}

// Count runs a COUNT statement
func (t *Template) Count(ctx context.Context, stmt *query.Statement) (int64, error) {
	var count int64
	err := t.run(ctx, query.ActionCount, stmt, func() error {
		return t.exec.scan(ctx, stmt, &count)
	})
	return count, err
}

// Exists reports whether stmt matches at least one row
func (t *Template) Exists(ctx context.Context, stmt *query.Statement) (bool, error) {
	var exists bool
	err := t.run(ctx, query.ActionExists, stmt, func() error {
		rows, err := t.exec.rows(ctx, stmt)
		exists = len(rows) > 0
		return err
	})
	return exists, err
}

// Delete runs a DELETE statement
func (t *Template) Delete(ctx context.Context, stmt *query.Statement) error {
	return t.run(ctx, query.ActionDelete, stmt, func() error {
		return t.exec.exec(ctx, stmt)
	})
}

func (t *Template) run(ctx context.Context, action query.Action, stmt *query.Statement, fn func() error) error {
	if stmt == nil {
		return fmt.Errorf("%s: nil statement", action)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start)
	t.metrics.RecordStatement(action.String(), err, duration)

	if err != nil {
		t.logger.Warn("statement failed",
			zap.Stringer("action", action),
			zap.String("cql", stmt.Query),
			zap.Error(err))
		return fmt.Errorf("%s failed: %w", action, err)
	}

	t.logger.Debug("statement executed",
		zap.Stringer("action", action),
		zap.String("cql", stmt.Query),
		zap.Int("values", len(stmt.Values)),
		zap.Duration("duration", duration))
	return nil
}
