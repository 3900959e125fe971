// Package warehouse persists transformed batches into the dim_date and
// fact_transaction tables.
package warehouse

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"k8s.io/klog"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/financialimporter"
)

const DefaultBatchSize = 1000

// PersistenceError wraps any database failure of a load operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Warehouse struct {
	db        *bun.DB
	batchSize int
}

func New(db *bun.DB, batchSize int) *Warehouse {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Warehouse{db: db, batchSize: batchSize}
}

// CreateTables creates dim_date and fact_transaction when missing. Existing
// tables are left untouched.
func (w *Warehouse) CreateTables(ctx context.Context) error {
	_, err := w.db.NewCreateTable().
		Model((*SQLDimDate)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return &PersistenceError{Op: "create dim_date table", Err: err}
	}

	_, err = w.db.NewCreateTable().
		Model((*SQLFactTransaction)(nil)).
		IfNotExists().
		ForeignKey(`("date_id") REFERENCES "dim_date" ("date_id")`).
		Exec(ctx)
	if err != nil {
		return &PersistenceError{Op: "create fact_transaction table", Err: err}
	}

	klog.Infof("Ensured tables dim_date and fact_transaction exist")
	return nil
}

// LoadDimDate inserts the distinct dates referenced by facts. Dates already
// present are left as they are, so the call is idempotent. Returns the
// number of distinct dates offered to the table.
func (w *Warehouse) LoadDimDate(ctx context.Context, facts []financialimporter.TransactionFact) (int, error) {
	dates := financialimporter.DistinctDates(facts)
	if len(dates) == 0 {
		return 0, nil
	}

	rows := make([]SQLDimDate, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, newSQLDimDate(d))
	}

	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := 0; i < len(rows); i += w.batchSize {
			records := rows[i:min(len(rows), i+w.batchSize)]
			if _, err := dimDateInsert(tx, &records).Exec(ctx); err != nil {
				return err
			}
			klog.V(2).Infof("Offered %d dates to dim_date", len(records))
		}
		return nil
	})
	if err != nil {
		return 0, &PersistenceError{Op: "load dim_date", Err: err}
	}

	return len(rows), nil
}

// LoadFactTransaction appends every fact. There is no deduplication: loading
// the same facts twice stores them twice.
func (w *Warehouse) LoadFactTransaction(ctx context.Context, facts []financialimporter.TransactionFact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	rows := make([]SQLFactTransaction, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, newSQLFactTransaction(f))
	}

	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := 0; i < len(rows); i += w.batchSize {
			records := rows[i:min(len(rows), i+w.batchSize)]
			if _, err := factTransactionInsert(tx, &records).Exec(ctx); err != nil {
				return err
			}
			klog.V(2).Infof("Appended %d rows to fact_transaction", len(records))
		}
		return nil
	})
	if err != nil {
		return 0, &PersistenceError{Op: "load fact_transaction", Err: err}
	}

	return len(rows), nil
}

func (w *Warehouse) Close() error {
	return w.db.Close()
}

func dimDateInsert(db bun.IDB, rows *[]SQLDimDate) *bun.InsertQuery {
	return db.NewInsert().
		Model(rows).
		On("CONFLICT (date_id) DO NOTHING")
}

func factTransactionInsert(db bun.IDB, rows *[]SQLFactTransaction) *bun.InsertQuery {
	return db.NewInsert().
		Model(rows)
}
