package csvimporter

import "strings"

// Record is one data row of a Table. It satisfies
// financialimporter.RawRecord.
type Record struct {
	// 1-based line number in the file, the header being line 1
	line      int
	record    []string
	headerMap map[string]int
}

// NewRecord builds a Record from column/value pairs, mostly useful in tests.
func NewRecord(values map[string]string) Record {
	headerMap := make(map[string]int, len(values))
	record := make([]string, 0, len(values))
	for column, value := range values {
		headerMap[column] = len(record)
		record = append(record, value)
	}
	return Record{record: record, headerMap: headerMap}
}

func (r Record) Line() int {
	return r.line
}

// Get returns the trimmed value of column. ok is false when the column is
// missing or the cell is blank, which is how nulls appear in the exports.
func (r Record) Get(column string) (value string, ok bool) {
	i, found := r.headerMap[column]
	if !found || i >= len(r.record) {
		return "", false
	}

	value = strings.TrimSpace(r.record[i])
	if value == "" {
		return "", false
	}
	return value, true
}

func (r Record) Timestamp() (string, bool) {
	return r.Get(ColumnTimestamp)
}

func (r Record) Category() (string, bool) {
	return r.Get(ColumnCategory)
}

func (r Record) Amount() (string, bool) {
	return r.Get(ColumnAmount)
}

func (r Record) Price() (string, bool) {
	return r.Get(ColumnPrice)
}

func (r Record) SpendingDescription() (string, bool) {
	return r.Get(ColumnSpendingDescription)
}

func (r Record) SourceDescription() (string, bool) {
	return r.Get(ColumnSourceDescription)
}

func (r Record) SpendingCategory() (string, bool) {
	return r.Get(ColumnSpendingCategory)
}

func (r Record) Source() (string, bool) {
	return r.Get(ColumnSource)
}
