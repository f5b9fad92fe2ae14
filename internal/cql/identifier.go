// Package cql provides CQL identifiers and column type expressions shared by
// the mapping and query layers.
package cql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a name cannot be used as a CQL identifier
var ErrInvalidIdentifier = errors.New("invalid CQL identifier")

var unquotedPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// reservedKeywords cannot be used unquoted as identifiers
var reservedKeywords = map[string]struct{}{
	"add": {}, "allow": {}, "alter": {}, "and": {}, "apply": {}, "asc": {},
	"authorize": {}, "batch": {}, "begin": {}, "by": {}, "columnfamily": {},
	"create": {}, "default": {}, "delete": {}, "desc": {}, "describe": {},
	"drop": {}, "entries": {}, "execute": {}, "from": {}, "full": {},
	"grant": {}, "if": {}, "in": {}, "index": {}, "infinity": {}, "insert": {},
	"into": {}, "is": {}, "keyspace": {}, "limit": {}, "materialized": {},
	"mbean": {}, "mbeans": {}, "modify": {}, "nan": {}, "norecursive": {},
	"not": {}, "null": {}, "of": {}, "on": {}, "or": {}, "order": {},
	"primary": {}, "rename": {}, "replace": {}, "revoke": {}, "schema": {},
	"select": {}, "set": {}, "table": {}, "to": {}, "token": {},
	"truncate": {}, "unlogged": {}, "unset": {}, "update": {}, "use": {},
	"using": {}, "view": {}, "where": {}, "with": {},
}

// IsReservedKeyword reports whether name is a reserved CQL keyword
func IsReservedKeyword(name string) bool {
	_, ok := reservedKeywords[strings.ToLower(name)]
	return ok
}

// Identifier is an immutable CQL identifier. Unquoted identifiers are
// case-insensitive and stored lower-cased; quoted identifiers keep their case.
type Identifier struct {
	name   string
	quoted bool
}

// Of creates an identifier, quoting it only when required: reserved keywords
// and names that are not plain identifiers. A name already wrapped in double
// quotes is taken as a quoted identifier.
func Of(name string) (Identifier, error) {
	if strings.TrimSpace(name) == "" {
		return Identifier{}, fmt.Errorf("%w: name must not be blank", ErrInvalidIdentifier)
	}

	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return Quoted(strings.ReplaceAll(name[1:len(name)-1], `""`, `"`))
	}

	if unquotedPattern.MatchString(name) && !IsReservedKeyword(name) {
		return Identifier{name: strings.ToLower(name)}, nil
	}

	return Identifier{name: name, quoted: true}, nil
}

// Quoted creates a case-sensitive, always-quoted identifier
func Quoted(name string) (Identifier, error) {
	if strings.TrimSpace(name) == "" {
		return Identifier{}, fmt.Errorf("%w: name must not be blank", ErrInvalidIdentifier)
	}
	return Identifier{name: name, quoted: true}, nil
}

// MustOf is like Of but panics on error. Intended for constants.
func MustOf(name string) Identifier {
	id, err := Of(name)
	if err != nil {
		panic(err)
	}
	return id
}

// ToCql renders the identifier for use in a statement
func (id Identifier) ToCql() string {
	if id.quoted {
		return `"` + strings.ReplaceAll(id.name, `"`, `""`) + `"`
	}
	return id.name
}

// Unquoted returns the name as stored in schema metadata
func (id Identifier) Unquoted() string {
	return id.name
}

// IsQuoted reports whether the identifier renders with quotes
func (id Identifier) IsQuoted() bool {
	return id.quoted
}

// IsZero reports whether the identifier is unset
func (id Identifier) IsZero() bool {
	return id.name == ""
}

// String implements fmt.Stringer
func (id Identifier) String() string {
	return id.ToCql()
}

// QualifiedName renders keyspace.name, omitting a zero keyspace
func QualifiedName(keyspace, name Identifier) string {
	if keyspace.IsZero() {
		return name.ToCql()
	}
	return keyspace.ToCql() + "." + name.ToCql()
}
