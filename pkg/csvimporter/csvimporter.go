// Package csvimporter reads transaction export files into an in-memory table
// without interpreting any of the values.
package csvimporter

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names of the finance export. They must match the header exactly.
const (
	ColumnTimestamp           = "Timestamp"
	ColumnCategory            = "Category"
	ColumnAmount              = "Amount"
	ColumnPrice               = "Price"
	ColumnSpendingDescription = "Spending Description"
	ColumnSourceDescription   = "Source Description"
	ColumnSpendingCategory    = "Spending Category"
	ColumnSource              = "Source"
)

// RequiredColumns lists the header columns every export has to carry.
var RequiredColumns = []string{
	ColumnTimestamp,
	ColumnCategory,
	ColumnAmount,
	ColumnPrice,
	ColumnSpendingDescription,
	ColumnSourceDescription,
	ColumnSpendingCategory,
	ColumnSource,
}

const utf8BOM = "\ufeff"

// ReadError is returned when a file is missing, unreadable or not a csv
// export of the expected shape.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Table is the raw content of one csv file.
type Table struct {
	Path   string
	Header []string
	// map of header name to index
	headerMap map[string]int
	rows      [][]string
}

// Extract reads the csv file at path into a Table.
func Extract(path string) (*Table, error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer csvFile.Close()

	table, err := Read(csvFile)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	table.Path = path
	return table, nil
}

// Read parses csv content from r. The first row is the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty, expected a header row")
	} else if err != nil {
		return nil, fmt.Errorf("failed to parse csv header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	headerMap := generateHeaderMap(header)

	var missing []string
	for _, column := range RequiredColumns {
		if _, ok := headerMap[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := [][]string{}
	for {
		line, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to parse csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, line)
	}

	return &Table{
		Header:    header,
		headerMap: headerMap,
		rows:      rows,
	}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Records returns one Record per data row, in file order.
func (t *Table) Records() []Record {
	records := make([]Record, 0, len(t.rows))
	for i, row := range t.rows {
		records = append(records, Record{
			line:      i + 2,
			record:    row,
			headerMap: t.headerMap,
		})
	}
	return records
}

// generateHeaderMap maps each trimmed header name to its column index.
// Names are matched exactly, the first occurrence of a duplicate wins.
func generateHeaderMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := m[h]; !ok {
			m[h] = i
		}
	}
	return m
}
