package query

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cqlkit/cqlmap/internal/mapping"
	utilstrings "github.com/cqlkit/cqlmap/internal/util/strings"
)

var (
	prefixPattern        = regexp.MustCompile(`^(find|read|get|query|search|stream|count|exists|delete|remove)(\p{Lu}.*?)??By`)
	subjectOnlyPattern   = regexp.MustCompile(`^(find|read|get|query|search|stream|count|exists|delete|remove)(\p{Lu}.*)?$`)
	limitPattern         = regexp.MustCompile(`(First|Top)(\d*)`)
	allIgnoreCasePattern = regexp.MustCompile(`AllIgnor(?:ing|e)Case`)
)

const (
	keywordOr      = "Or"
	keywordAnd     = "And"
	keywordOrderBy = "OrderBy"
)

// Action is what a derived query does with the matching rows
type Action int

const (
	ActionSelect Action = iota
	ActionCount
	ActionExists
	ActionDelete
)

// String returns the action name used in logs and metrics
func (a Action) String() string {
	switch a {
	case ActionCount:
		return "count"
	case ActionExists:
		return "exists"
	case ActionDelete:
		return "delete"
	default:
		return "select"
	}
}

func actionOf(prefix string) Action {
	switch prefix {
	case "count":
		return ActionCount
	case "exists":
		return ActionExists
	case "delete", "remove":
		return ActionDelete
	default:
		return ActionSelect
	}
}

// Subject is the part of a method name between the prefix and By
type Subject struct {
	action     Action
	distinct   bool
	maxResults int
}

// Action returns the query action
func (s Subject) Action() Action { return s.action }

// IsDistinct reports whether Distinct was requested
func (s Subject) IsDistinct() bool { return s.distinct }

// IsLimiting reports whether First or Top was requested
func (s Subject) IsLimiting() bool { return s.maxResults > 0 }

// MaxResults returns the First/Top limit, 0 when not limiting
func (s Subject) MaxResults() int { return s.maxResults }

// Direction is a sort direction
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns ASC or DESC
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Order is one OrderBy clause
type Order struct {
	path      []*mapping.PersistentProperty
	direction Direction
}

// Property returns the sorted property
func (o *Order) Property() *mapping.PersistentProperty { return o.path[len(o.path)-1] }

// Column returns the rendered column path
func (o *Order) Column() string { return mapping.ColumnPath(o.path) }

// Direction returns the sort direction
func (o *Order) Direction() Direction { return o.direction }

// OrPart is a group of parts combined with AND
type OrPart struct {
	parts []*Part
}

// Parts returns the AND-ed parts in declaration order
func (o *OrPart) Parts() []*Part {
	out := make([]*Part, len(o.parts))
	copy(out, o.parts)
	return out
}

// String returns the parts joined with " and "
func (o *OrPart) String() string {
	parts := make([]string, len(o.parts))
	for i, p := range o.parts {
		parts[i] = p.String()
	}
	return strings.Join(parts, " and ")
}

// PartTree is the parsed form of a query method name: a subject and OR-ed
// groups of AND-ed parts, with an optional sort. It is immutable once built.
type PartTree struct {
	source        string
	subject       Subject
	orParts       []*OrPart
	sort          []*Order
	allIgnoreCase bool
}

// NewPartTree parses a method name against the properties of entity
func NewPartTree(source string, entity *mapping.PersistentEntity) (*PartTree, error) {
	if strings.TrimSpace(source) == "" {
		return nil, creationError(source, CauseInvalidMethod, "method name must not be blank")
	}
	if entity == nil {
		return nil, creationError(source, CauseInvalidMethod, "no entity given")
	}

	var prefix, subject, predicate string
	if m := prefixPattern.FindStringSubmatch(source); m != nil {
		prefix, subject, predicate = m[1], m[2], source[len(m[0]):]
	} else if m := subjectOnlyPattern.FindStringSubmatch(source); m != nil {
		prefix, subject = m[1], m[2]
	} else {
		return nil, creationError(source, CauseInvalidPrefix,
			"method name must start with find, read, get, query, search, stream, count, exists, delete or remove")
	}

	tree := &PartTree{source: source}

	var err error
	tree.subject, err = parseSubject(source, actionOf(prefix), subject)
	if err != nil {
		return nil, err
	}
	if err := tree.parsePredicate(predicate, entity); err != nil {
		return nil, err
	}
	return tree, nil
}

func parseSubject(source string, action Action, text string) (Subject, error) {
	s := Subject{action: action, distinct: strings.Contains(text, "Distinct")}

	if m := limitPattern.FindStringSubmatch(text); m != nil {
		s.maxResults = 1
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil || n < 1 {
				return Subject{}, creationError(source, CauseInvalidMethod, "invalid result limit %s%s", m[1], m[2])
			}
			s.maxResults = n
		}
	}
	return s, nil
}

func (t *PartTree) parsePredicate(predicate string, entity *mapping.PersistentEntity) error {
	if loc := allIgnoreCasePattern.FindStringIndex(predicate); loc != nil {
		t.allIgnoreCase = true
		predicate = predicate[:loc[0]] + predicate[loc[1]:]
	}

	criteria, orderBy := predicate, ""
	if i := keywordIndex(predicate, keywordOrderBy, 0); i >= 0 {
		criteria, orderBy = predicate[:i], predicate[i+len(keywordOrderBy):]
		if orderBy == "" {
			return creationError(t.source, CauseInvalidMethod, "OrderBy must name at least one property")
		}
	}

	if criteria != "" {
		for _, orSource := range splitKeyword(criteria, keywordOr) {
			if orSource == "" {
				return creationError(t.source, CauseInvalidMethod, "empty Or clause")
			}
			orPart := &OrPart{}
			for _, partSource := range splitKeyword(orSource, keywordAnd) {
				if partSource == "" {
					return creationError(t.source, CauseInvalidMethod, "empty And clause")
				}
				part, err := t.newPart(partSource, entity)
				if err != nil {
					return err
				}
				orPart.parts = append(orPart.parts, part)
			}
			t.orParts = append(t.orParts, orPart)
		}
	}

	if orderBy != "" {
		return t.parseOrderBy(orderBy, entity)
	}
	return nil
}

func (t *PartTree) newPart(source string, entity *mapping.PersistentEntity) (*Part, error) {
	part := &Part{source: source, typ: SimpleProperty}

	text := source
	if trimmed, ok := trimAnySuffix(text, "IgnoreCase", "IgnoringCase"); ok {
		part.ignoreCase = IgnoreCaseAlways
		text = trimmed
	} else if t.allIgnoreCase {
		part.ignoreCase = IgnoreCaseWhenPossible
	}

	for _, kw := range suffixes {
		if len(text) <= len(kw.suffix) || !strings.HasSuffix(text, kw.suffix) {
			continue
		}
		if path, err := resolvePath(entity, text[:len(text)-len(kw.suffix)]); err == nil {
			part.path, part.typ = path, kw.typ
			return part, nil
		}
	}

	path, err := resolvePath(entity, text)
	if err != nil {
		return nil, &QueryCreationError{Method: t.source, Cause: CauseUnknownProperty, Err: err}
	}
	part.path = path
	return part, nil
}

func (t *PartTree) parseOrderBy(source string, entity *mapping.PersistentEntity) error {
	var current []string
	add := func(direction Direction) error {
		if len(current) == 0 {
			return creationError(t.source, CauseInvalidMethod, "OrderBy direction without a property")
		}
		path, err := resolvePath(entity, strings.Join(current, ""))
		if err != nil {
			return &QueryCreationError{Method: t.source, Cause: CauseUnknownProperty, Err: err}
		}
		t.sort = append(t.sort, &Order{path: path, direction: direction})
		current = nil
		return nil
	}

	for _, word := range utilstrings.SplitCamel(source) {
		switch word {
		case "Asc":
			if err := add(Asc); err != nil {
				return err
			}
		case "Desc":
			if err := add(Desc); err != nil {
				return err
			}
		default:
			current = append(current, word)
		}
	}
	if len(current) > 0 {
		return add(Asc)
	}
	return nil
}

// Source returns the method name the tree was parsed from
func (t *PartTree) Source() string { return t.source }

// Subject returns the parsed subject
func (t *PartTree) Subject() Subject { return t.subject }

// OrParts returns the OR-ed groups in declaration order
func (t *PartTree) OrParts() []*OrPart {
	out := make([]*OrPart, len(t.orParts))
	copy(out, t.orParts)
	return out
}

// Parts returns every part of every group in declaration order
func (t *PartTree) Parts() []*Part {
	var out []*Part
	for _, o := range t.orParts {
		out = append(out, o.parts...)
	}
	return out
}

// Sort returns the OrderBy clauses
func (t *PartTree) Sort() []*Order {
	out := make([]*Order, len(t.sort))
	copy(out, t.sort)
	return out
}

// IsAllIgnoreCase reports whether AllIgnoreCase was given
func (t *PartTree) IsAllIgnoreCase() bool { return t.allIgnoreCase }

// HasPredicate reports whether the method restricts rows
func (t *PartTree) HasPredicate() bool { return len(t.orParts) > 0 }

// NumberOfArguments returns how many method arguments the tree binds
func (t *PartTree) NumberOfArguments() int {
	n := 0
	for _, p := range t.Parts() {
		n += p.NumberOfArguments()
	}
	return n
}

// String returns the groups joined with " or "
func (t *PartTree) String() string {
	groups := make([]string, len(t.orParts))
	for i, o := range t.orParts {
		groups[i] = o.String()
	}
	return strings.Join(groups, " or ")
}

// resolvePath maps a capitalized property expression to a property path.
// Nested user-defined type properties are reached either by concatenation
// (AddressCity) or explicitly with underscores (Address_City).
func resolvePath(entity *mapping.PersistentEntity, expr string) ([]*mapping.PersistentProperty, error) {
	if expr == "" {
		return nil, mapping.ErrPropertyNotFound
	}

	if strings.Contains(expr, "_") {
		var path []*mapping.PersistentProperty
		current := entity
		for _, segment := range strings.Split(expr, "_") {
			if current == nil {
				return nil, propertyNotFound(entity, expr)
			}
			prop, ok := current.Property(utilstrings.Uncapitalize(segment))
			if !ok {
				return nil, propertyNotFound(entity, expr)
			}
			path = append(path, prop)
			current = prop.UserType
		}
		return path, nil
	}

	if path := matchWords(entity, utilstrings.SplitCamel(expr)); path != nil {
		return path, nil
	}
	return nil, propertyNotFound(entity, expr)
}

// matchWords tries the longest property name first, then descends into
// user-defined types for the remaining words
func matchWords(entity *mapping.PersistentEntity, words []string) []*mapping.PersistentProperty {
	for n := len(words); n >= 1; n-- {
		prop, ok := entity.Property(utilstrings.Uncapitalize(strings.Join(words[:n], "")))
		if !ok {
			continue
		}
		if n == len(words) {
			return []*mapping.PersistentProperty{prop}
		}
		if prop.UserType == nil {
			continue
		}
		if rest := matchWords(prop.UserType, words[n:]); rest != nil {
			return append([]*mapping.PersistentProperty{prop}, rest...)
		}
	}
	return nil
}

func propertyNotFound(entity *mapping.PersistentEntity, expr string) error {
	return &propertyError{entity: entity.Name(), expr: expr}
}

type propertyError struct {
	entity string
	expr   string
}

func (e *propertyError) Error() string {
	return "no property " + utilstrings.Uncapitalize(e.expr) + " found on " + e.entity
}

func (e *propertyError) Unwrap() error { return mapping.ErrPropertyNotFound }

// UnknownProperty returns the property expression that could not be
// resolved when err reports an unknown property
func UnknownProperty(err error) (string, bool) {
	var pe *propertyError
	if errors.As(err, &pe) {
		return utilstrings.Uncapitalize(pe.expr), true
	}
	return "", false
}

// splitKeyword splits s at every occurrence of keyword that is followed by
// an upper-case letter
func splitKeyword(s, keyword string) []string {
	var out []string
	start := 0
	for i := keywordIndex(s, keyword, 0); i >= 0; i = keywordIndex(s, keyword, start) {
		out = append(out, s[start:i])
		start = i + len(keyword)
	}
	return append(out, s[start:])
}

// keywordIndex finds keyword in s at or after from where the next rune is
// upper-case, or -1
func keywordIndex(s, keyword string, from int) int {
	for i := from; i+len(keyword) < len(s); i++ {
		if !strings.HasPrefix(s[i:], keyword) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s[i+len(keyword):])
		if unicode.IsUpper(r) {
			return i
		}
	}
	return -1
}

func trimAnySuffix(s string, suffixes ...string) (string, bool) {
	for _, suffix := range suffixes {
		if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix), true
		}
	}
	return s, false
}
