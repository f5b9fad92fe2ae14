package mapping

import (
	"errors"
	"fmt"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/datastax/go-cassandra-native-protocol/datatype"
	"github.com/datastax/go-cassandra-native-protocol/primitive"

	"github.com/cqlkit/cqlmap/internal/cql"
)

var errNoTypeInfo = errors.New("missing type information")

// protocolType converts driver type metadata into a protocol data type.
// Field types the driver could not parse, such as references to other
// user-defined types, are parsed from their CQL text.
func protocolType(info gocql.TypeInfo) (datatype.DataType, error) {
	if info == nil {
		return nil, errNoTypeInfo
	}

	switch t := info.(type) {
	case gocql.CollectionType:
		elem, err := protocolType(t.Elem)
		if err != nil {
			return nil, err
		}
		switch t.Type() {
		case gocql.TypeList:
			return datatype.NewList(elem), nil
		case gocql.TypeSet:
			return datatype.NewSet(elem), nil
		case gocql.TypeMap:
			key, err := protocolType(t.Key)
			if err != nil {
				return nil, err
			}
			return datatype.NewMap(key, elem), nil
		}
		return nil, fmt.Errorf("unsupported collection type %v", t.Type())

	case gocql.UDTTypeInfo:
		names := make([]string, len(t.Elements))
		types := make([]datatype.DataType, len(t.Elements))
		for i, field := range t.Elements {
			dt, err := protocolType(field.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			names[i], types[i] = field.Name, dt
		}
		return datatype.NewUserDefined(t.Keyspace, t.Name, names, types)

	case gocql.TupleTypeInfo:
		elems := make([]datatype.DataType, len(t.Elems))
		for i, elem := range t.Elems {
			dt, err := protocolType(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = dt
		}
		return datatype.NewTuple(elems...), nil
	}

	switch info.Type() {
	case gocql.TypeCustom:
		parsed, err := cql.ParseType(fmt.Sprint(info))
		if err != nil {
			return nil, err
		}
		return parsed.DataType(), nil
	case gocql.TypeText:
		return datatype.Varchar, nil
	}

	if dt, ok := cql.NativeOf(primitive.DataTypeCode(info.Type())); ok {
		return dt, nil
	}
	return nil, fmt.Errorf("unsupported type %v", info.Type())
}
