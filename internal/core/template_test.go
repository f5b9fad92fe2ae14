package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/metrics"
	"github.com/cqlkit/cqlmap/internal/query"
)

type fakeExecutor struct {
	result []map[string]interface{}
	count  int64
	err    error
	seen   []*query.Statement
	ctxs   []context.Context
}

func (f *fakeExecutor) rows(ctx context.Context, stmt *query.Statement) ([]map[string]interface{}, error) {
	f.seen = append(f.seen, stmt)
	f.ctxs = append(f.ctxs, ctx)
	return f.result, f.err
}

func (f *fakeExecutor) scan(ctx context.Context, stmt *query.Statement, dest ...interface{}) error {
	f.seen = append(f.seen, stmt)
	f.ctxs = append(f.ctxs, ctx)
	if f.err != nil {
		return f.err
	}
	*(dest[0].(*int64)) = f.count
	return nil
}

func (f *fakeExecutor) exec(ctx context.Context, stmt *query.Statement) error {
	f.seen = append(f.seen, stmt)
	f.ctxs = append(f.ctxs, ctx)
	return f.err
}

type requestKey struct{}

type Book struct {
	ISBN   string `cql:"isbn,partition"`
	Title  string
	Author string
}

func TestNewTemplate_NilSession(t *testing.T) {
	_, err := NewTemplate(nil, mapping.NewContext())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTemplate_Operations(t *testing.T) {
	ctx := context.Background()
	stmt := &query.Statement{Query: "SELECT * FROM books WHERE isbn=?", Values: []interface{}{"1"}}

	exec := &fakeExecutor{
		result: []map[string]interface{}{{"isbn": "1", "title": "Go"}},
		count:  3,
	}
	tmpl := newTemplate(exec, nil)
	require.NotNil(t, tmpl.MappingContext())

	rows, err := tmpl.Select(ctx, stmt)
	require.NoError(t, err)
	assert.Equal(t, exec.result, rows)

	count, err := tmpl.Count(ctx, stmt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	exists, err := tmpl.Exists(ctx, stmt)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, tmpl.Delete(ctx, stmt))
	assert.Len(t, exec.seen, 4)

	exec.result = nil
	exists, err = tmpl.Exists(ctx, stmt)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTemplate_Errors(t *testing.T) {
	stmt := &query.Statement{Query: "DELETE FROM books WHERE isbn=?"}
	exec := &fakeExecutor{err: errors.New("timeout")}

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	tmpl := newTemplate(exec, nil, WithMetrics(m))

	err = tmpl.Delete(context.Background(), stmt)
	assert.ErrorIs(t, err, exec.err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("delete", metrics.OutcomeError)))

	err = tmpl.Delete(context.Background(), nil)
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tmpl.Select(canceled, stmt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, exec.seen, 1)
}

func TestTemplate_PassesCallerContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.WithValue(context.Background(), requestKey{}, "req-1"), time.Minute)
	defer cancel()
	stmt := &query.Statement{Query: "SELECT * FROM books WHERE isbn=?", Values: []interface{}{"1"}}

	exec := &fakeExecutor{count: 1}
	tmpl := newTemplate(exec, nil)

	_, err := tmpl.Select(ctx, stmt)
	require.NoError(t, err)
	_, err = tmpl.Count(ctx, stmt)
	require.NoError(t, err)
	_, err = tmpl.Exists(ctx, stmt)
	require.NoError(t, err)
	require.NoError(t, tmpl.Delete(ctx, stmt))

	require.Len(t, exec.ctxs, 4)
	for _, got := range exec.ctxs {
		assert.Equal(t, "req-1", got.Value(requestKey{}))
		_, hasDeadline := got.Deadline()
		assert.True(t, hasDeadline)
	}
}

func TestTemplate_UserTypeResolverNeedsSession(t *testing.T) {
	tmpl := newTemplate(&fakeExecutor{}, nil)
	_, err := tmpl.UserTypeResolver("shop")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTemplate_RunsDerivedQueries(t *testing.T) {
	mc := mapping.NewContext(mapping.WithKeyspace(cql.MustOf("library")))
	book, err := mc.RegisterEntity(Book{}, mapping.WithTable("books"))
	require.NoError(t, err)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	exec := &fakeExecutor{count: 2}
	tmpl := newTemplate(exec, mc, WithMetrics(m))

	q, err := query.NewPartTreeQuery(&query.Method{Name: "countByAuthor", Entity: book}, tmpl)
	require.NoError(t, err)

	result, err := q.Execute(context.Background(), "Pike")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Count)

	require.Len(t, exec.seen, 1)
	assert.Equal(t, "SELECT COUNT(1) FROM library.books WHERE author=?", exec.seen[0].Query)
	assert.Equal(t, []interface{}{"Pike"}, exec.seen[0].Values)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsTotal.WithLabelValues("count", metrics.OutcomeSuccess)))
}
