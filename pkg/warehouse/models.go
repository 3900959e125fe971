package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/financialimporter"
)

type SQLDimDate struct {
	bun.BaseModel `bun:"table:dim_date,alias:dd"`
	DateID        int       `bun:"date_id,pk"`
	FullDate      time.Time `bun:"full_date,type:date,notnull"`
	Year          int       `bun:"year,notnull"`
	MonthNum      int       `bun:"month_num,notnull"`
	MonthName     string    `bun:"month_name,notnull"`
}

type SQLFactTransaction struct {
	bun.BaseModel `bun:"table:fact_transaction,alias:ft"`
	TransactionID int64           `bun:"transaction_id,pk,autoincrement"`
	DateID        int             `bun:"date_id,notnull"`
	CategoryID    int             `bun:"category_id,notnull"`
	ExpenseID     int             `bun:"expense_id,notnull"`
	SourceID      int             `bun:"source_id,notnull"`
	Amount        decimal.Decimal `bun:"amount,type:numeric(12,2),notnull"`
	Description   *string         `bun:"description,type:text"`
	CreatedAt     time.Time       `bun:"created_at,type:timestamp,notnull"`
}

func newSQLDimDate(d financialimporter.DateDimension) SQLDimDate {
	return SQLDimDate{
		DateID:    d.DateID,
		FullDate:  d.FullDate,
		Year:      d.Year,
		MonthNum:  d.MonthNum,
		MonthName: d.MonthName,
	}
}

func newSQLFactTransaction(f financialimporter.TransactionFact) SQLFactTransaction {
	return SQLFactTransaction{
		DateID:      f.DateID,
		CategoryID:  f.CategoryID,
		ExpenseID:   f.ExpenseID,
		SourceID:    f.SourceID,
		Amount:      f.Amount,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
	}
}
