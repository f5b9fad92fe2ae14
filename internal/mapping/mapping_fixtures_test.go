package mapping

import (
	"fmt"
	"sync"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"
)

type GeoPoint struct {
	Lat float64
	Lng float64
}

type Address struct {
	Street   string
	City     string
	Zip      string `cql:"zip_code"`
	Location *GeoPoint
}

type Phone struct {
	Number string
	Kind   string
}

func (Phone) CassandraUserType() UserDefinedType {
	return UserDefinedType{Name: "PhoneNumber", ForceQuote: true}
}

type Audit struct {
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Person struct {
	Audit
	ID        uuid.UUID `cql:"id,partition"`
	LastName  string    `cql:",clustering"`
	FirstName string
	Age       int32
	Score     int64
	Active    bool
	Tags      []string
	Emails    map[string]struct{}
	Counters  map[string]int
	Address   Address
	Phones    []Phone
	SessionID gocql.UUID
	Avatar    []byte
	Secret    string `cql:"-"`
	Cached    string `cql:",transient"`
	internal  int
}

type Node struct {
	Value string
	Next  *Node
}

func (Node) CassandraUserType() UserDefinedType {
	return UserDefinedType{}
}

type WithChannel struct {
	Events chan string
}

// Contact maps Phone before failing on Events
type Contact struct {
	Phone  Phone
	Events chan string
}

type Unmarked struct {
	Value string
}

type WithUnmarked struct {
	Inner Unmarked
}

// fakeMetadataSource serves keyspace metadata from memory
type fakeMetadataSource struct {
	mu        sync.Mutex
	keyspaces map[string]*gocql.KeyspaceMetadata
	err       error
	calls     int
}

func newFakeMetadataSource() *fakeMetadataSource {
	return &fakeMetadataSource{keyspaces: make(map[string]*gocql.KeyspaceMetadata)}
}

func (f *fakeMetadataSource) KeyspaceMetadata(keyspace string) (*gocql.KeyspaceMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ks, ok := f.keyspaces[keyspace]
	if !ok {
		return nil, gocql.ErrKeyspaceDoesNotExist
	}
	return ks, nil
}

func (f *fakeMetadataSource) addUserType(keyspace, name string, fields ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ks, ok := f.keyspaces[keyspace]
	if !ok {
		ks = &gocql.KeyspaceMetadata{
			Name:      keyspace,
			UserTypes: make(map[string]*gocql.UserTypeMetadata),
		}
		f.keyspaces[keyspace] = ks
	}
	ks.UserTypes[name] = &gocql.UserTypeMetadata{
		Keyspace:   keyspace,
		Name:       name,
		FieldNames: fields,
	}
}

func (f *fakeMetadataSource) addTypedUserType(keyspace, name string, fields []string, types []gocql.TypeInfo) {
	f.addUserType(keyspace, name, fields...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyspaces[keyspace].UserTypes[name].FieldTypes = types
}

func (f *fakeMetadataSource) dropKeyspace(keyspace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keyspaces, keyspace)
}

type nilMetadataSource struct{}

func (nilMetadataSource) KeyspaceMetadata(string) (*gocql.KeyspaceMetadata, error) {
	return nil, nil
}

// rawTypeInfo is a field type the driver kept as unparsed CQL text
type rawTypeInfo string

func (rawTypeInfo) Type() gocql.Type  { return gocql.TypeCustom }
func (rawTypeInfo) Zero() interface{} { return nil }

func (r rawTypeInfo) Marshal(interface{}) ([]byte, error) {
	return nil, fmt.Errorf("cannot marshal %s", string(r))
}

func (r rawTypeInfo) Unmarshal([]byte, interface{}) error {
	return fmt.Errorf("cannot unmarshal %s", string(r))
}
