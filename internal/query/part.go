// Package query derives CQL statements from repository method names
package query

import (
	"sort"
	"strings"

	"github.com/cqlkit/cqlmap/internal/mapping"
)

// Type is the comparison keyword of a single predicate part
type Type int

const (
	SimpleProperty Type = iota
	NegatingSimpleProperty
	Between
	IsNotNull
	IsNull
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
	Before
	After
	NotLike
	Like
	StartingWith
	EndingWith
	IsNotEmpty
	IsEmpty
	NotContaining
	Containing
	NotIn
	In
	True
	False
)

var typeNames = map[Type]string{
	SimpleProperty:         "SIMPLE_PROPERTY",
	NegatingSimpleProperty: "NEGATING_SIMPLE_PROPERTY",
	Between:                "BETWEEN",
	IsNotNull:              "IS_NOT_NULL",
	IsNull:                 "IS_NULL",
	LessThan:               "LESS_THAN",
	LessThanEqual:          "LESS_THAN_EQUAL",
	GreaterThan:            "GREATER_THAN",
	GreaterThanEqual:       "GREATER_THAN_EQUAL",
	Before:                 "BEFORE",
	After:                  "AFTER",
	NotLike:                "NOT_LIKE",
	Like:                   "LIKE",
	StartingWith:           "STARTING_WITH",
	EndingWith:             "ENDING_WITH",
	IsNotEmpty:             "IS_NOT_EMPTY",
	IsEmpty:                "IS_EMPTY",
	NotContaining:          "NOT_CONTAINING",
	Containing:             "CONTAINING",
	NotIn:                  "NOT_IN",
	In:                     "IN",
	True:                   "TRUE",
	False:                  "FALSE",
}

// String returns the string representation of the type
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// NumberOfArguments returns how many method arguments the keyword consumes
func (t Type) NumberOfArguments() int {
	switch t {
	case Between:
		return 2
	case IsNull, IsNotNull, IsEmpty, IsNotEmpty, True, False:
		return 0
	default:
		return 1
	}
}

// keywords lists the method-name suffixes of each type
var keywords = map[Type][]string{
	IsNotNull:              {"IsNotNull", "NotNull"},
	IsNull:                 {"IsNull", "Null"},
	LessThanEqual:          {"IsLessThanEqual", "LessThanEqual"},
	LessThan:               {"IsLessThan", "LessThan"},
	GreaterThanEqual:       {"IsGreaterThanEqual", "GreaterThanEqual"},
	GreaterThan:            {"IsGreaterThan", "GreaterThan"},
	Before:                 {"IsBefore", "Before"},
	After:                  {"IsAfter", "After"},
	NotLike:                {"IsNotLike", "NotLike"},
	Like:                   {"IsLike", "Like"},
	StartingWith:           {"IsStartingWith", "StartingWith", "StartsWith"},
	EndingWith:             {"IsEndingWith", "EndingWith", "EndsWith"},
	IsNotEmpty:             {"IsNotEmpty", "NotEmpty"},
	IsEmpty:                {"IsEmpty", "Empty"},
	NotContaining:          {"IsNotContaining", "NotContaining", "NotContains"},
	Containing:             {"IsContaining", "Containing", "Contains"},
	NotIn:                  {"IsNotIn", "NotIn"},
	In:                     {"IsIn", "In"},
	Between:                {"IsBetween", "Between"},
	True:                   {"IsTrue", "True"},
	False:                  {"IsFalse", "False"},
	NegatingSimpleProperty: {"IsNot", "Not"},
	SimpleProperty:         {"Is", "Equals"},
}

type keyword struct {
	suffix string
	typ    Type
}

// suffixes holds every keyword, longest first
var suffixes = func() []keyword {
	var all []keyword
	for typ, words := range keywords {
		for _, w := range words {
			all = append(all, keyword{suffix: w, typ: typ})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if len(all[i].suffix) != len(all[j].suffix) {
			return len(all[i].suffix) > len(all[j].suffix)
		}
		return all[i].suffix < all[j].suffix
	})
	return all
}()

// IgnoreCaseType tells whether a part compares case-insensitively
type IgnoreCaseType int

const (
	IgnoreCaseNever IgnoreCaseType = iota
	IgnoreCaseAlways
	IgnoreCaseWhenPossible
)

// Part is a single predicate clause: a property path and a keyword
type Part struct {
	source     string
	path       []*mapping.PersistentProperty
	typ        Type
	ignoreCase IgnoreCaseType
}

// Source returns the method-name fragment the part was parsed from
func (p *Part) Source() string { return p.source }

// Type returns the comparison keyword
func (p *Part) Type() Type { return p.typ }

// IgnoreCase returns the case sensitivity of the comparison
func (p *Part) IgnoreCase() IgnoreCaseType { return p.ignoreCase }

// Property returns the leaf property the part compares
func (p *Part) Property() *mapping.PersistentProperty {
	return p.path[len(p.path)-1]
}

// PropertyPath returns the property path from the entity to the compared property
func (p *Part) PropertyPath() []*mapping.PersistentProperty {
	out := make([]*mapping.PersistentProperty, len(p.path))
	copy(out, p.path)
	return out
}

// Path returns the dotted property path (address.city)
func (p *Part) Path() string {
	names := make([]string, len(p.path))
	for i, prop := range p.path {
		names[i] = prop.Name
	}
	return strings.Join(names, ".")
}

// NumberOfArguments returns how many method arguments the part consumes
func (p *Part) NumberOfArguments() int {
	return p.typ.NumberOfArguments()
}

// String returns "path TYPE"
func (p *Part) String() string {
	return p.Path() + " " + p.typ.String()
}
