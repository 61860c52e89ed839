package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "NAME"}, [][]string{
		{"a", "short"},
		{"longer-id", "x"},
	})

	assert.Equal(t,
		"ID         NAME \n"+
			"a          short\n"+
			"longer-id  x    \n",
		buf.String())
}

func TestPrintTable_HeaderOnlyWhenNoRows(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "NAME"}, nil)

	assert.Equal(t, "ID  NAME\n", buf.String())
}

func TestOrNone(t *testing.T) {
	assert.Equal(t, "-", orNone(""))
	assert.Equal(t, "value", orNone("value"))
}

func TestStatusf_SuppressedByQuiet(t *testing.T) {
	oldQuiet := flagQuiet
	t.Cleanup(func() { flagQuiet = oldQuiet })

	// statusf writes to stderr; quiet mode must not panic or write.
	flagQuiet = true
	statusf("hidden %d\n", 1)

	flagQuiet = false
	statusf("")
}
