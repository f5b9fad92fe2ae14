package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		expected string
	}{
		{
			name:     "problem only",
			opts:     ErrorOptions{Problem: "boom", NoColor: true},
			expected: "✗ boom\n",
		},
		{
			name: "full",
			opts: ErrorOptions{
				Context:      "query creation failed",
				Problem:      "findByLastNme",
				Detail:       "no property lastNme found on Person",
				Suggestions:  []string{"lastName"},
				HelpCommands: []string{"Get help: cqlmap derive --help"},
				NoColor:      true,
			},
			expected: "✗ QUERY CREATION FAILED: findByLastNme\n" +
				"   no property lastNme found on Person\n" +
				"\n   Did you mean: lastName?\n" +
				"\n   → Get help: cqlmap derive --help\n",
		},
		{
			name:     "warning",
			opts:     ErrorOptions{Level: ErrorLevelWarning, Problem: "careful", NoColor: true},
			expected: "! careful\n",
		},
		{
			name:     "info",
			opts:     ErrorOptions{Level: ErrorLevelInfo, Problem: "note", NoColor: true},
			expected: "i note\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatError(tt.opts))
		})
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Problem: "boom", NoColor: true})
	assert.Equal(t, "✗ boom\n", buf.String())
}

func TestSuccess(t *testing.T) {
	assert.Equal(t, "✓ done", FormatSuccess("done", true))

	var buf bytes.Buffer
	WriteSuccess(&buf, "written", true)
	assert.Equal(t, "✓ written\n", buf.String())
}

func TestMessageHelpers(t *testing.T) {
	msg := QueryCreationError("findByX", "no property x found on Person", []string{"age"}, true)
	assert.Contains(t, msg, "QUERY CREATION FAILED: findByX")
	assert.Contains(t, msg, "Did you mean: age?")
	assert.Contains(t, msg, "cqlmap derive --help")

	msg = EntityNotFoundError("Persn", []string{"Person"}, true)
	assert.Contains(t, msg, "ENTITY NOT FOUND: Persn")
	assert.Contains(t, msg, "No entity named 'Persn'")

	msg = ConfigError("bad level", true)
	assert.Contains(t, msg, "CONFIGURATION ERROR: bad level")
	assert.Contains(t, msg, "cqlmap init")

	assert.Equal(t, "! slow\n", Warning("slow", true))
}
