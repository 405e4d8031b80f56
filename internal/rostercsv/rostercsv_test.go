package rostercsv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []Row{
		{Name: "Alice", RollNumber: "101", Email: "alice@example.com"},
		{Name: "Bob, Jr.", RollNumber: "102"},
	})
	require.NoError(t, err)

	assert.Equal(t, "name,rollNumber,email\nAlice,101,alice@example.com\n\"Bob, Jr.\",102,\n", buf.String())
}

func TestTemplate_Deterministic(t *testing.T) {
	rows := Template(56)
	require.Len(t, rows, 56)
	assert.Equal(t, Row{Name: "Student 1", RollNumber: "101", Email: "student1@example.com"}, rows[0])
	assert.Equal(t, Row{Name: "Student 56", RollNumber: "156", Email: "student56@example.com"}, rows[55])
}

func TestDecode_ReordersColumnsAndSkipsBlankLines(t *testing.T) {
	in := "\ufeffEmail,Name,RollNumber\n" +
		"a@example.com, Alice ,101\n" +
		",,\n" +
		",Bob,\n"

	rows, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Name: "Alice", RollNumber: "101", Email: "a@example.com"}, rows[0])
	assert.Equal(t, Row{Name: "Bob"}, rows[1])

	valid := ValidRows(rows)
	require.Len(t, valid, 1)
	assert.Equal(t, "Alice", valid[0].Name)
}

func TestDecode_ShortRowsAndMissingEmailColumn(t *testing.T) {
	rows, err := Decode(strings.NewReader("name,rollNumber\nAlice,101\nBob\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Email)
	assert.False(t, rows[1].Valid())
}

func TestDecode_MissingHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestDecode_Empty(t *testing.T) {
	rows, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRoundTripTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Template(3)))

	rows, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Template(3), rows)
}
