package financialimporter

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one row of a finance export. Every accessor returns ok=false
// when the value is null.
type RawRecord interface {
	Timestamp() (string, bool)
	Category() (string, bool)
	Amount() (string, bool)
	Price() (string, bool)
	SpendingDescription() (string, bool)
	SourceDescription() (string, bool)
	SpendingCategory() (string, bool)
	Source() (string, bool)
}

// DateDimension is one row of the date dimension, keyed by DateID (YYYYMMDD).
type DateDimension struct {
	DateID    int
	FullDate  time.Time
	Year      int
	MonthNum  int
	MonthName string
}

// TransactionFact is one warehouse-bound transaction row. The embedded
// DateDimension carries the attributes the dimension load needs.
type TransactionFact struct {
	DateDimension
	CategoryID  int
	ExpenseID   int
	SourceID    int
	Amount      decimal.Decimal
	Description *string
	CreatedAt   time.Time
}

// Batch is the output of transforming one file.
type Batch struct {
	Facts []TransactionFact
	// Input is the number of records fed to Transform
	Input int
	// Dropped counts records without a category or amount
	Dropped int
}

// DateDimensions returns the distinct dates referenced by the batch, in
// first-seen order.
func (b *Batch) DateDimensions() []DateDimension {
	return DistinctDates(b.Facts)
}

// DistinctDates deduplicates the date dimension rows of facts by DateID.
func DistinctDates(facts []TransactionFact) []DateDimension {
	seen := make(map[int]struct{}, len(facts))
	dates := make([]DateDimension, 0)

	for _, f := range facts {
		if _, ok := seen[f.DateID]; ok {
			continue
		}
		seen[f.DateID] = struct{}{}
		dates = append(dates, f.DateDimension)
	}

	return dates
}

// ParseError reports a value that could not be parsed. Any ParseError fails
// the whole file.
type ParseError struct {
	// 1-based record number within the batch, not counting the header
	Row int
	// line in the source file, 0 when the record does not know it
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("record %d (line %d): unable to parse %s %q: %v", e.Row, e.Line, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("record %d: unable to parse %s %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
