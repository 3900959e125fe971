// Package financialimporter maps raw finance export rows onto the warehouse
// star schema: a transaction fact per row plus the date dimension it
// references.
package financialimporter

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Day-first layouts tried in order. Go's "2" and "1" accept one or two digits.
var timestampLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var errNullTimestamp = errors.New("timestamp is empty")

// lineRecord is implemented by records that know their line in the source file.
type lineRecord interface {
	Line() int
}

// Transform converts a file's records into facts. Records without a known
// category or without an amount are dropped. A ParseError aborts the batch.
func Transform[R RawRecord](records []R) (*Batch, error) {
	batch := &Batch{
		Facts: make([]TransactionFact, 0, len(records)),
		Input: len(records),
	}

	for i, record := range records {
		fact, keep, err := TransformRecord(record)
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.Row = i + 1
				if lr, ok := any(record).(lineRecord); ok {
					parseErr.Line = lr.Line()
				}
			}
			return nil, err
		}

		if !keep {
			batch.Dropped++
			continue
		}

		batch.Facts = append(batch.Facts, fact)
	}

	return batch, nil
}

// TransformRecord converts a single record. keep is false when the record
// lacks a required field (category or amount) and must not be loaded. Rows
// with an unknown category are dropped before their amount is parsed.
func TransformRecord(record RawRecord) (fact TransactionFact, keep bool, err error) {
	rawTimestamp, _ := record.Timestamp()
	createdAt, err := ParseTimestamp(rawTimestamp)
	if err != nil {
		return fact, false, &ParseError{Column: "Timestamp", Value: rawTimestamp, Err: err}
	}

	fact.CreatedAt = createdAt
	fact.DateDimension = NewDateDimension(createdAt)

	categoryLabel, _ := record.Category()
	categoryID, hasCategory := CategoryID(categoryLabel)
	if !hasCategory {
		return fact, false, nil
	}
	fact.CategoryID = categoryID

	// Amount is filled for income rows and Price for spending rows, the first
	// non-null one wins regardless of category.
	amountColumn := "Amount"
	rawAmount, hasAmount := record.Amount()
	if !hasAmount {
		amountColumn = "Price"
		rawAmount, hasAmount = record.Price()
	}

	if hasAmount {
		fact.Amount, err = decimal.NewFromString(rawAmount)
		if err != nil {
			return fact, false, &ParseError{Column: amountColumn, Value: rawAmount, Err: err}
		}
	}

	if description, ok := record.SpendingDescription(); ok {
		fact.Description = &description
	} else if description, ok := record.SourceDescription(); ok {
		fact.Description = &description
	}

	fact.ExpenseID = resolveExpenseID(fact.CategoryID, record)
	fact.SourceID = resolveSourceID(fact.CategoryID, record)

	if !hasAmount {
		return fact, false, nil
	}

	return fact, true, nil
}

func resolveExpenseID(categoryID int, record RawRecord) int {
	if categoryID == CategoryIncome {
		return NotApplicable
	}

	label, _ := record.SpendingCategory()
	return ExpenseID(label)
}

func resolveSourceID(categoryID int, record RawRecord) int {
	if categoryID == CategorySpending {
		return NotApplicable
	}

	label, _ := record.Source()
	return SourceID(label)
}

// ParseTimestamp parses a day-first timestamp such as "15/03/2024 09:00".
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errNullTimestamp
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("no day-first layout matches %q", value)
}

// NewDateDimension derives the date dimension row for t. DateID is the
// YYYYMMDD representation of the calendar date.
func NewDateDimension(t time.Time) DateDimension {
	year, month, day := t.Date()

	return DateDimension{
		DateID:    DateID(t),
		FullDate:  time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Year:      year,
		MonthNum:  int(month),
		MonthName: month.String(),
	}
}

func DateID(t time.Time) int {
	year, month, day := t.Date()
	return year*10000 + int(month)*100 + day
}
