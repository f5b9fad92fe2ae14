package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"LastName", "last_name"},
		{"lastName", "last_name"},
		{"HTTPRequest", "http_request"},
		{"Address2Line", "address2_line"},
		{"Person", "person"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestUncapitalize(t *testing.T) {
	assert.Equal(t, "lastName", Uncapitalize("LastName"))
	assert.Equal(t, "urlPath", Uncapitalize("URLPath"))
	assert.Equal(t, "id", Uncapitalize("ID"))
	assert.Equal(t, "", Uncapitalize(""))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "LastName", Capitalize("lastName"))
	assert.Equal(t, "", Capitalize(""))
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, []string{"Last", "Name", "And", "Age"}, SplitCamel("LastNameAndAge"))
	assert.Equal(t, []string{"URL", "Path"}, SplitCamel("URLPath"))
	assert.Equal(t, []string{"Top10", "Users"}, SplitCamel("Top10Users"))
	assert.Nil(t, SplitCamel(""))
}
