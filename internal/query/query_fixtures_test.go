package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/mapping"
)

type Address struct {
	Street string
	City   string
	Zip    string `cql:"zip_code"`
}

func (Address) CassandraUserType() mapping.UserDefinedType {
	return mapping.UserDefinedType{}
}

type Person struct {
	ID        uuid.UUID `cql:"id,partition"`
	LastName  string    `cql:",clustering"`
	FirstName string
	Age       int32
	Active    bool
	Tags      []string
	Nicknames map[string]struct{}
	Address   Address
	CreatedAt time.Time
	CheckIn   time.Time
}

func newTestContext(t *testing.T) (*mapping.Context, *mapping.PersistentEntity) {
	t.Helper()

	mc := mapping.NewContext(mapping.WithKeyspace(cql.MustOf("shop")))
	person, err := mc.RegisterEntity(Person{})
	require.NoError(t, err)
	return mc, person
}

// fakeOperations records statements and returns canned results
type fakeOperations struct {
	mu         sync.Mutex
	mc         *mapping.Context
	rows       []map[string]interface{}
	count      int64
	exists     bool
	err        error
	statements []*Statement
	calls      []string
}

func newFakeOperations(mc *mapping.Context) *fakeOperations {
	return &fakeOperations{mc: mc}
}

func (f *fakeOperations) record(call string, stmt *Statement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.statements = append(f.statements, stmt)
}

func (f *fakeOperations) MappingContext() *mapping.Context {
	return f.mc
}

func (f *fakeOperations) Select(ctx context.Context, stmt *Statement) ([]map[string]interface{}, error) {
	f.record("select", stmt)
	return f.rows, f.err
}

func (f *fakeOperations) Count(ctx context.Context, stmt *Statement) (int64, error) {
	f.record("count", stmt)
	return f.count, f.err
}

func (f *fakeOperations) Exists(ctx context.Context, stmt *Statement) (bool, error) {
	f.record("exists", stmt)
	return f.exists, f.err
}

func (f *fakeOperations) Delete(ctx context.Context, stmt *Statement) error {
	f.record("delete", stmt)
	return f.err
}
