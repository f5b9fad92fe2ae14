package query

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/logging"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/metrics"
)

// Method describes a repository query method
type Method struct {
	Name           string
	Entity         *mapping.PersistentEntity
	ParameterTypes []reflect.Type // optional; checked against the tree when set
	AllowFiltering bool
}

// Operations executes statements against the cluster
type Operations interface {
	MappingContext() *mapping.Context
	Select(ctx context.Context, stmt *Statement) ([]map[string]interface{}, error)
	Count(ctx context.Context, stmt *Statement) (int64, error)
	Exists(ctx context.Context, stmt *Statement) (bool, error)
	Delete(ctx context.Context, stmt *Statement) error
}

// Result holds the outcome of an executed query; which field is set depends
// on the subject's action
type Result struct {
	Action Action
	Rows   []map[string]interface{}
	Count  int64
	Exists bool
}

// PartTreeQuery is a query derived from a method name. The name is parsed
// once, at construction; every execution renders a fresh statement.
type PartTreeQuery struct {
	method  *Method
	ops     Operations
	tree    *PartTree
	creator *CqlQueryCreator
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a PartTreeQuery
type Option func(*PartTreeQuery)

// WithLogger sets the query's logger
func WithLogger(logger *zap.Logger) Option {
	return func(q *PartTreeQuery) {
		q.logger = logging.OrNop(logger)
	}
}

// WithMetrics records construction outcomes
func WithMetrics(m *metrics.Collector) Option {
	return func(q *PartTreeQuery) {
		q.metrics = m
	}
}

// NewPartTreeQuery parses and validates the method name. Every failure is
// reported as a *QueryCreationError.
func NewPartTreeQuery(method *Method, ops Operations, opts ...Option) (*PartTreeQuery, error) {
	q := &PartTreeQuery{method: method, ops: ops, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(q)
	}

	if err := q.init(); err != nil {
		var qce *QueryCreationError
		if !errors.As(err, &qce) {
			qce = &QueryCreationError{Method: q.methodName(), Cause: CauseMapping, Err: err}
		}
		q.metrics.RecordQueryCreationFailure(qce.Cause.String())
		q.logger.Debug("query creation failed",
			zap.String("method", qce.Method),
			zap.Stringer("cause", qce.Cause),
			zap.Error(qce.Err))
		return nil, qce
	}

	q.metrics.RecordQueryCreation()
	q.logger.Debug("derived query",
		zap.String("method", method.Name),
		zap.String("entity", method.Entity.Name()),
		zap.String("tree", q.tree.String()))
	return q, nil
}

func (q *PartTreeQuery) init() error {
	name := q.methodName()
	if q.method == nil {
		return creationError(name, CauseInvalidMethod, "method must not be nil")
	}
	if isNil(q.ops) {
		return creationError(name, CauseInvalidMethod, "operations must not be nil")
	}
	if q.method.Entity == nil {
		return creationError(name, CauseInvalidMethod, "method has no entity")
	}

	tree, err := NewPartTree(q.method.Name, q.method.Entity)
	if err != nil {
		return err
	}

	if types := q.method.ParameterTypes; types != nil && len(types) != tree.NumberOfArguments() {
		return creationError(name, CauseParameterMismatch,
			"method declares %d parameters but the criteria bind %d", len(types), tree.NumberOfArguments())
	}

	var keyspace cql.Identifier
	if mc := q.ops.MappingContext(); mc != nil {
		keyspace = mc.Keyspace()
	}

	creator, err := NewCqlQueryCreator(tree, q.method.Entity, keyspace, q.method.AllowFiltering)
	if err != nil {
		return err
	}

	q.tree = tree
	q.creator = creator
	return nil
}

func (q *PartTreeQuery) methodName() string {
	if q.method == nil {
		return "<nil>"
	}
	return q.method.Name
}

// Tree returns the parsed method name
func (q *PartTreeQuery) Tree() *PartTree {
	return q.tree
}

// Method returns the query method
func (q *PartTreeQuery) Method() *Method {
	return q.method
}

// CreateQuery renders the statement for the given arguments
func (q *PartTreeQuery) CreateQuery(params ParameterAccessor) (*Statement, error) {
	return q.creator.CreateQuery(params)
}

// Execute binds args, renders the statement and runs it
func (q *PartTreeQuery) Execute(ctx context.Context, args ...interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params, err := NewParametersParameterAccessor(q.method.ParameterTypes, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.method.Name, err)
	}
	stmt, err := q.CreateQuery(params)
	if err != nil {
		return nil, err
	}

	action := q.tree.Subject().Action()
	start := time.Now()
	defer func() {
		q.logger.Debug("executed derived query",
			zap.String("method", q.method.Name),
			zap.Stringer("action", action),
			zap.String("cql", stmt.Query),
			zap.Duration("duration", time.Since(start)))
	}()

	result := &Result{Action: action}
	switch action {
	case ActionCount:
		result.Count, err = q.ops.Count(ctx, stmt)
	case ActionExists:
		result.Exists, err = q.ops.Exists(ctx, stmt)
	case ActionDelete:
		err = q.ops.Delete(ctx, stmt)
	default:
		result.Rows, err = q.ops.Select(ctx, stmt)
		if subject := q.tree.Subject(); err == nil && subject.IsLimiting() && len(result.Rows) > subject.MaxResults() {
			result.Rows = result.Rows[:subject.MaxResults()]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.method.Name, err)
	}
	return result, nil
}
