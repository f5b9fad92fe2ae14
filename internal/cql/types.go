package cql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/datastax/go-cassandra-native-protocol/datatype"
	"github.com/datastax/go-cassandra-native-protocol/primitive"
)

// ErrInvalidType is returned when a type expression cannot be parsed
var ErrInvalidType = errors.New("invalid CQL type")

var nativeTypes = map[string]datatype.DataType{
	"ascii":     datatype.Ascii,
	"bigint":    datatype.Bigint,
	"blob":      datatype.Blob,
	"boolean":   datatype.Boolean,
	"counter":   datatype.Counter,
	"date":      datatype.Date,
	"decimal":   datatype.Decimal,
	"double":    datatype.Double,
	"duration":  datatype.Duration,
	"float":     datatype.Float,
	"inet":      datatype.Inet,
	"int":       datatype.Int,
	"smallint":  datatype.Smallint,
	"text":      datatype.Varchar,
	"varchar":   datatype.Varchar,
	"time":      datatype.Time,
	"timestamp": datatype.Timestamp,
	"timeuuid":  datatype.Timeuuid,
	"tinyint":   datatype.Tinyint,
	"uuid":      datatype.Uuid,
	"varint":    datatype.Varint,
}

var nativeNames = map[primitive.DataTypeCode]string{
	primitive.DataTypeCodeAscii:     "ascii",
	primitive.DataTypeCodeBigint:    "bigint",
	primitive.DataTypeCodeBlob:      "blob",
	primitive.DataTypeCodeBoolean:   "boolean",
	primitive.DataTypeCodeCounter:   "counter",
	primitive.DataTypeCodeDate:      "date",
	primitive.DataTypeCodeDecimal:   "decimal",
	primitive.DataTypeCodeDouble:    "double",
	primitive.DataTypeCodeDuration:  "duration",
	primitive.DataTypeCodeFloat:     "float",
	primitive.DataTypeCodeInet:      "inet",
	primitive.DataTypeCodeInt:       "int",
	primitive.DataTypeCodeSmallint:  "smallint",
	primitive.DataTypeCodeVarchar:   "text",
	primitive.DataTypeCodeTime:      "time",
	primitive.DataTypeCodeTimestamp: "timestamp",
	primitive.DataTypeCodeTimeuuid:  "timeuuid",
	primitive.DataTypeCodeTinyint:   "tinyint",
	primitive.DataTypeCodeUuid:      "uuid",
	primitive.DataTypeCodeVarint:    "varint",
}

// Type is a column type: a native type, a collection or a reference to a
// user-defined type.
type Type struct {
	code     primitive.DataTypeCode
	elem     *Type
	key      *Type
	value    *Type
	userType Identifier
}

// Native wraps a native protocol data type
func Native(dt datatype.DataType) *Type {
	return &Type{code: dt.Code()}
}

// NativeOf returns the protocol data type for a native type code
func NativeOf(code primitive.DataTypeCode) (datatype.DataType, bool) {
	name, ok := nativeNames[code]
	if !ok {
		return nil, false
	}
	return nativeTypes[name], true
}

// ListOf creates list<elem>
func ListOf(elem *Type) *Type {
	return &Type{code: primitive.DataTypeCodeList, elem: elem}
}

// SetOf creates set<elem>
func SetOf(elem *Type) *Type {
	return &Type{code: primitive.DataTypeCodeSet, elem: elem}
}

// MapOf creates map<key, value>
func MapOf(key, value *Type) *Type {
	return &Type{code: primitive.DataTypeCodeMap, key: key, value: value}
}

// UserTypeRef references a user-defined type by name
func UserTypeRef(name Identifier) *Type {
	return &Type{code: primitive.DataTypeCodeUdt, userType: name}
}

// Code returns the protocol type code
func (t *Type) Code() primitive.DataTypeCode { return t.code }

// Elem returns the element type of a list or set
func (t *Type) Elem() *Type { return t.elem }

// Key returns the key type of a map
func (t *Type) Key() *Type { return t.key }

// Value returns the value type of a map
func (t *Type) Value() *Type { return t.value }

// UserType returns the referenced user type name
func (t *Type) UserType() Identifier { return t.userType }

// IsCollection reports whether the type is a list, set or map
func (t *Type) IsCollection() bool {
	switch t.code {
	case primitive.DataTypeCodeList, primitive.DataTypeCodeSet, primitive.DataTypeCodeMap:
		return true
	default:
		return false
	}
}

// IsText reports whether the type holds character data
func (t *Type) IsText() bool {
	return t.code == primitive.DataTypeCodeVarchar || t.code == primitive.DataTypeCodeAscii
}

// IsBoolean reports whether the type is boolean
func (t *Type) IsBoolean() bool {
	return t.code == primitive.DataTypeCodeBoolean
}

// IsUserType reports whether the type references a user-defined type
func (t *Type) IsUserType() bool {
	return t.code == primitive.DataTypeCodeUdt
}

// DataType returns the protocol data type. A user-defined type reference
// becomes a UserDefined that carries only the type name.
func (t *Type) DataType() datatype.DataType {
	switch t.code {
	case primitive.DataTypeCodeList:
		return datatype.NewList(t.elem.DataType())
	case primitive.DataTypeCodeSet:
		return datatype.NewSet(t.elem.DataType())
	case primitive.DataTypeCodeMap:
		return datatype.NewMap(t.key.DataType(), t.value.DataType())
	case primitive.DataTypeCodeUdt:
		return &datatype.UserDefined{Name: t.userType.Unquoted()}
	default:
		dt, _ := NativeOf(t.code)
		return dt
	}
}

// SameDataType reports whether a and b describe the same column type.
// User-defined types compare by name only.
func SameDataType(a, b datatype.DataType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Code() != b.Code() {
		return false
	}

	switch at := a.(type) {
	case *datatype.List:
		bt, ok := b.(*datatype.List)
		return ok && SameDataType(at.ElementType, bt.ElementType)
	case *datatype.Set:
		bt, ok := b.(*datatype.Set)
		return ok && SameDataType(at.ElementType, bt.ElementType)
	case *datatype.Map:
		bt, ok := b.(*datatype.Map)
		return ok && SameDataType(at.KeyType, bt.KeyType) && SameDataType(at.ValueType, bt.ValueType)
	case *datatype.Tuple:
		bt, ok := b.(*datatype.Tuple)
		if !ok || len(at.FieldTypes) != len(bt.FieldTypes) {
			return false
		}
		for i := range at.FieldTypes {
			if !SameDataType(at.FieldTypes[i], bt.FieldTypes[i]) {
				return false
			}
		}
		return true
	case *datatype.UserDefined:
		bt, ok := b.(*datatype.UserDefined)
		return ok && at.Name == bt.Name
	default:
		return true
	}
}

// String renders the type as it appears in DDL. User types and collections
// nested in other types are frozen.
func (t *Type) String() string {
	return t.render(false)
}

func (t *Type) render(nested bool) string {
	var s string
	switch t.code {
	case primitive.DataTypeCodeList:
		s = fmt.Sprintf("list<%s>", t.elem.render(true))
	case primitive.DataTypeCodeSet:
		s = fmt.Sprintf("set<%s>", t.elem.render(true))
	case primitive.DataTypeCodeMap:
		s = fmt.Sprintf("map<%s, %s>", t.key.render(true), t.value.render(true))
	case primitive.DataTypeCodeUdt:
		return fmt.Sprintf("frozen<%s>", t.userType.ToCql())
	default:
		if name, ok := nativeNames[t.code]; ok {
			return name
		}
		return "unknown"
	}
	if nested {
		return fmt.Sprintf("frozen<%s>", s)
	}
	return s
}

// ParseType parses a type expression such as text, list<int>,
// map<text, frozen<address>> or "MyType".
func ParseType(expr string) (*Type, error) {
	p := &typeParser{tokens: tokenizeType(expr)}
	t, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidType, expr, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("%w %q: unexpected %q", ErrInvalidType, expr, p.peek())
	}
	return t, nil
}

type typeParser struct {
	tokens []string
	pos    int
}

func (p *typeParser) done() bool { return p.pos >= len(p.tokens) }

func (p *typeParser) peek() string {
	if p.done() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *typeParser) parse() (*Type, error) {
	name := p.next()
	switch name {
	case "", "<", ">", ",":
		return nil, fmt.Errorf("expected type name, got %q", name)
	}

	switch strings.ToLower(name) {
	case "list", "set", "frozen":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		inner, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		switch strings.ToLower(name) {
		case "list":
			return ListOf(inner), nil
		case "set":
			return SetOf(inner), nil
		default:
			return inner, nil
		}
	case "map":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		key, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		value, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return MapOf(key, value), nil
	}

	if dt, ok := nativeTypes[strings.ToLower(name)]; ok {
		return Native(dt), nil
	}

	id, err := Of(name)
	if err != nil {
		return nil, err
	}
	return UserTypeRef(id), nil
}

func tokenizeType(expr string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range expr {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case inQuotes:
			current.WriteRune(r)
		case r == '<' || r == '>' || r == ',':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
