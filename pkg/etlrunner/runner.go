// Package etlrunner drives the per-file extract, transform, load and archive
// sequence. A failing file is reported and left pending, the rest of the
// batch carries on.
package etlrunner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"k8s.io/klog"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/csvimporter"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/financialimporter"
)

// FileStore lists pending files and archives processed ones.
type FileStore interface {
	ListPending() ([]string, error)
	Archive(path string) (string, error)
}

// Loader persists a transformed batch. LoadDimDate must be idempotent.
type Loader interface {
	LoadDimDate(ctx context.Context, facts []financialimporter.TransactionFact) (int, error)
	LoadFactTransaction(ctx context.Context, facts []financialimporter.TransactionFact) (int, error)
}

// Reporter receives the summary of every run.
type Reporter interface {
	Report(summary *Summary) error
}

type Stage string

const (
	StageExtract     Stage = "extract"
	StageTransform   Stage = "transform"
	StageLoadDimDate Stage = "load dim_date"
	StageLoadFact    Stage = "load fact_transaction"
	StageArchive     Stage = "archive"
)

// FileResult describes what happened to one file.
type FileResult struct {
	File string
	// Stage that failed, empty when the file succeeded
	Stage      Stage
	Err        error
	Records    int
	Facts      int
	Dropped    int
	Dates      int
	ArchivedTo string
	Duration   time.Duration
}

func (r FileResult) Succeeded() bool {
	return r.Err == nil
}

type Summary struct {
	StartedAt time.Time
	Duration  time.Duration
	Found     int
	Succeeded []FileResult
	Failed    []FileResult
}

type Runner struct {
	files          FileStore
	loader         Loader
	reporter       Reporter
	persistTimeout time.Duration
}

// NewRunner wires the collaborators. reporter may be nil; a zero
// persistTimeout leaves writes unbounded.
func NewRunner(files FileStore, loader Loader, reporter Reporter, persistTimeout time.Duration) *Runner {
	return &Runner{
		files:          files,
		loader:         loader,
		reporter:       reporter,
		persistTimeout: persistTimeout,
	}
}

// Run processes every pending file once. Per-file failures end up in the
// summary, an error is only returned when the pending files cannot be
// listed or ctx is cancelled between files.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{StartedAt: time.Now()}

	files, err := r.files.ListPending()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending files: %w", err)
	}

	summary.Found = len(files)
	if len(files) == 0 {
		klog.Infof("No files to process")
	} else {
		klog.Infof("Found %d file(s) to process", len(files))
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(summary.StartedAt)
			return summary, err
		}

		result := r.processFile(ctx, file)
		if result.Succeeded() {
			klog.Infof("Successfully processed & archived: %s (%d facts, %d dropped, %d dates)",
				filepath.Base(file), result.Facts, result.Dropped, result.Dates)
			summary.Succeeded = append(summary.Succeeded, result)
		} else {
			klog.Errorf("Failed processing %s at %s: %v", filepath.Base(file), result.Stage, result.Err)
			summary.Failed = append(summary.Failed, result)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	klog.Infof("Processed %d file(s): %d succeeded, %d failed",
		summary.Found, len(summary.Succeeded), len(summary.Failed))

	if r.reporter != nil {
		if err := r.reporter.Report(summary); err != nil {
			klog.Warningf("Failed to report run summary: %v", err)
		}
	}

	return summary, nil
}

func (r *Runner) processFile(ctx context.Context, file string) (result FileResult) {
	start := time.Now()
	result.File = file
	defer func() { result.Duration = time.Since(start) }()

	fail := func(stage Stage, err error) FileResult {
		result.Stage = stage
		result.Err = err
		return result
	}

	klog.Infof("Extracting: %s", filepath.Base(file))
	table, err := csvimporter.Extract(file)
	if err != nil {
		return fail(StageExtract, err)
	}
	result.Records = table.Len()

	batch, err := financialimporter.Transform(table.Records())
	if err != nil {
		return fail(StageTransform, err)
	}
	result.Facts = len(batch.Facts)
	result.Dropped = batch.Dropped
	if batch.Dropped > 0 {
		klog.Warningf("Dropped %d record(s) without category or amount from %s", batch.Dropped, filepath.Base(file))
	}

	// dimension rows must be committed before facts reference them
	result.Dates, err = r.persist(ctx, batch.Facts, r.loader.LoadDimDate)
	if err != nil {
		return fail(StageLoadDimDate, err)
	}

	if _, err = r.persist(ctx, batch.Facts, r.loader.LoadFactTransaction); err != nil {
		return fail(StageLoadFact, err)
	}

	result.ArchivedTo, err = r.files.Archive(file)
	if err != nil {
		return fail(StageArchive, err)
	}

	return result
}

type loadFunc func(ctx context.Context, facts []financialimporter.TransactionFact) (int, error)

func (r *Runner) persist(ctx context.Context, facts []financialimporter.TransactionFact, load loadFunc) (int, error) {
	if r.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.persistTimeout)
		defer cancel()
	}

	return load(ctx, facts)
}
