package csvimporter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Timestamp,Category,Amount,Price,Spending Description,Source Description,Spending Category,Source\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract(t *testing.T) {
	path := writeFile(t, "export.csv", header+
		"01/02/2024 10:00,Income,500,,,Salary,,Monthly Income\n"+
		"15/03/2024 09:00,Spending,,20,Lunch,,Food,\n")

	table, err := Extract(path)
	require.NoError(t, err)

	assert.Equal(t, path, table.Path)
	assert.Equal(t, 2, table.Len())

	records := table.Records()
	require.Len(t, records, 2)

	ts, ok := records[0].Timestamp()
	assert.True(t, ok)
	assert.Equal(t, "01/02/2024 10:00", ts)

	_, ok = records[0].Price()
	assert.False(t, ok, "blank cell is null")

	desc, ok := records[1].SpendingDescription()
	assert.True(t, ok)
	assert.Equal(t, "Lunch", desc)
	assert.Equal(t, 3, records[1].Line())
}

func TestExtractStripsBOMAndIgnoresColumnOrder(t *testing.T) {
	path := writeFile(t, "bom.csv", "\ufeffCategory,Timestamp,Amount,Price,Spending Description,Source Description,Spending Category,Source,Notes\n"+
		"Income,01/02/2024 10:00,500,,,,,Others,extra\n")

	table, err := Extract(path)
	require.NoError(t, err)

	records := table.Records()
	require.Len(t, records, 1)

	category, ok := records[0].Category()
	assert.True(t, ok)
	assert.Equal(t, "Income", category)

	notes, ok := records[0].Get("Notes")
	assert.True(t, ok)
	assert.Equal(t, "extra", notes)
}

func TestExtractHeaderOnly(t *testing.T) {
	table, err := Extract(writeFile(t, "empty-body.csv", header))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Records())
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") }},
		{"empty file", func(t *testing.T) string { return writeFile(t, "empty.csv", "") }},
		{"missing columns", func(t *testing.T) string { return writeFile(t, "cols.csv", "Timestamp,Category\n01/02/2024,Income\n") }},
		{"ragged row", func(t *testing.T) string { return writeFile(t, "ragged.csv", header+"01/02/2024,Income\n") }},
		{"bad quoting", func(t *testing.T) string { return writeFile(t, "quote.csv", header+"\"01/02/2024,Income,1,,,,,\n") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := tc.path(t)
			_, err := Extract(path)
			require.Error(t, err)

			var readErr *ReadError
			require.True(t, errors.As(err, &readErr))
			assert.Equal(t, path, readErr.Path)
		})
	}
}

func TestReadMissingColumnsMessage(t *testing.T) {
	_, err := Read(strings.NewReader("Timestamp,Category,Amount\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Price")
	assert.Contains(t, err.Error(), "Spending Category")
}

func TestRecordGet(t *testing.T) {
	r := NewRecord(map[string]string{
		ColumnAmount: "  12.50 ",
		ColumnPrice:  "   ",
	})

	v, ok := r.Amount()
	assert.True(t, ok)
	assert.Equal(t, "12.50", v)

	_, ok = r.Price()
	assert.False(t, ok)

	_, ok = r.Source()
	assert.False(t, ok)
}
