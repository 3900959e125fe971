package financialimporter

import "sort"

const (
	CategoryIncome   = 1
	CategorySpending = 2
)

// NotApplicable is the expense/source code for rows where the subcategory
// does not apply or the label is unknown.
const NotApplicable = 0

var categoryIDs = map[string]int{
	"Income":   CategoryIncome,
	"Spending": CategorySpending,
}

var expenseIDs = map[string]int{
	"Not Applicable": 0,
	"Food":           1,
	"Electricity":    2,
	"Internet":       3,
	"Fuel":           4,
	"Hygiene":        5,
	"Shopping":       6,
	"Laundry":        7,
	"Snacks":         8,
}

var sourceIDs = map[string]int{
	"Not Applicable": 0,
	"Monthly Income": 1,
	"Activities":     2,
	"Others":         3,
}

// CategoryID looks up the category code. ok is false for unknown labels.
func CategoryID(label string) (id int, ok bool) {
	id, ok = categoryIDs[label]
	return id, ok
}

// ExpenseID looks up a spending subcategory, unknown labels map to 0.
func ExpenseID(label string) int {
	return expenseIDs[label]
}

// SourceID looks up an income subcategory, unknown labels map to 0.
func SourceID(label string) int {
	return sourceIDs[label]
}

// ExpenseLabels returns the known spending subcategory labels.
func ExpenseLabels() []string {
	return sortedLabels(expenseIDs)
}

// SourceLabels returns the known income subcategory labels.
func SourceLabels() []string {
	return sortedLabels(sourceIDs)
}

func sortedLabels(ids map[string]int) []string {
	labels := make([]string, 0, len(ids))
	for label := range ids {
		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool { return ids[labels[i]] < ids[labels[j]] })
	return labels
}
