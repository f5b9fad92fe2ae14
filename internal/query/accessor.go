package query

import (
	"fmt"
	"reflect"
)

// ParameterAccessor gives the creator access to invocation arguments
type ParameterAccessor interface {
	Len() int
	Value(index int) interface{}
}

// ParametersParameterAccessor binds invocation arguments to declared
// parameter types
type ParametersParameterAccessor struct {
	values []interface{}
}

// NewParametersParameterAccessor checks values against the declared types.
// With no declared types any values are accepted.
func NewParametersParameterAccessor(types []reflect.Type, values []interface{}) (*ParametersParameterAccessor, error) {
	if types != nil {
		if len(values) != len(types) {
			return nil, fmt.Errorf("%w: expected %d arguments, got %d", ErrInvalidParameter, len(types), len(values))
		}
		for i, v := range values {
			if v == nil {
				if !nillable(types[i]) {
					return nil, fmt.Errorf("%w: argument %d must not be nil", ErrInvalidParameter, i)
				}
				continue
			}
			if !reflect.TypeOf(v).AssignableTo(types[i]) {
				return nil, fmt.Errorf("%w: argument %d is %T, expected %s", ErrInvalidParameter, i, v, types[i])
			}
		}
	}

	copied := make([]interface{}, len(values))
	copy(copied, values)
	return &ParametersParameterAccessor{values: copied}, nil
}

// Len returns the number of arguments
func (a *ParametersParameterAccessor) Len() int {
	return len(a.values)
}

// Value returns the argument at index
func (a *ParametersParameterAccessor) Value(index int) interface{} {
	return a.values[index]
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// isNil also catches a nil pointer stored in an interface
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
