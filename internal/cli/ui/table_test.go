package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Property", "Keyword", "Column"}, &TableOptions{NoColor: true})

	table.AddRow("lastName", "SIMPLE_PROPERTY", "last_name")
	table.AddRow("age", "GREATER_THAN", "age")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Property  Keyword          Column", lines[0])
	assert.Equal(t, "────────  ───────────────  ─────────", lines[1])
	assert.Equal(t, "lastName  SIMPLE_PROPERTY  last_name", lines[2])
	assert.Equal(t, "age       GREATER_THAN     age", lines[3])
	assert.Equal(t, 2, table.Len())
}

func TestTable_RaggedRows(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A", "B"}, nil)
	table.noColor = true

	table.AddRow("1")
	table.AddRow("2", "3", "dropped")
	table.Render()

	output := buf.String()
	assert.Contains(t, output, "1\n")
	assert.Contains(t, output, "2  3\n")
	assert.NotContains(t, output, "dropped")
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, &TableOptions{NoColor: true}).Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Entity", "Person")
	kv.AddRow("Action", "select")
	kv.Render()

	assert.Equal(t, "Entity: Person\nAction: select\n", buf.String())
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "User types", true)
	assert.Equal(t, "User types\n\n", buf.String())
}

func TestPadRight_Runes(t *testing.T) {
	assert.Equal(t, "é  ", padRight("é", 3))
	assert.Equal(t, "long", padRight("long", 2))
}
