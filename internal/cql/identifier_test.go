package cql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		cql      string
		unquoted string
		quoted   bool
	}{
		{"simple", "address", "address", "address", false},
		{"mixed case folds", "LastName", "lastname", "lastname", false},
		{"reserved keyword", "order", `"order"`, "order", true},
		{"not an identifier", "first-name", `"first-name"`, "first-name", true},
		{"leading digit", "1st", `"1st"`, "1st", true},
		{"already quoted", `"MyType"`, `"MyType"`, "MyType", true},
		{"escaped quote", `"a""b"`, `"a""b"`, `a"b`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Of(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.cql, id.ToCql())
			assert.Equal(t, tt.unquoted, id.Unquoted())
			assert.Equal(t, tt.quoted, id.IsQuoted())
		})
	}
}

func TestOf_Blank(t *testing.T) {
	_, err := Of("  ")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = Quoted("")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestQuoted(t *testing.T) {
	id, err := Quoted("Address")
	require.NoError(t, err)
	assert.Equal(t, `"Address"`, id.ToCql())
	assert.Equal(t, "Address", id.Unquoted())
	assert.True(t, id.IsQuoted())
}

func TestMustOf_Panics(t *testing.T) {
	assert.Panics(t, func() { MustOf("") })
	assert.Equal(t, "person", MustOf("person").String())
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "ks.person", QualifiedName(MustOf("ks"), MustOf("person")))
	assert.Equal(t, "person", QualifiedName(Identifier{}, MustOf("person")))
	assert.True(t, Identifier{}.IsZero())
}

func TestIsReservedKeyword(t *testing.T) {
	assert.True(t, IsReservedKeyword("SELECT"))
	assert.True(t, IsReservedKeyword("limit"))
	assert.False(t, IsReservedKeyword("person"))
}
