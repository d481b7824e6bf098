package parser

import (
	"context"
	"runtime"
	"sync"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

const defaultChunkSize = 2000

// Builder converts large tables in fixed-size chunks on a worker pool.
// Output is identical to BuildCandidates: candidates keep input order and
// errors stay ordered by row.
type Builder struct {
	dates     normalizer.DateParser
	workers   int
	chunkSize int
}

// NewBuilder creates a builder. workers <= 0 uses GOMAXPROCS.
func NewBuilder(dates normalizer.DateParser, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		dates:     dates,
		workers:   workers,
		chunkSize: defaultChunkSize,
	}
}

// WithChunkSize overrides the number of rows handed to a worker at once.
func (b *Builder) WithChunkSize(n int) *Builder {
	if n > 0 {
		b.chunkSize = n
	}
	return b
}

type chunkJob struct {
	index  int
	offset int
	rows   [][]string
}

// Build converts table. Small tables and single-worker builders run inline.
// The only error is the context's.
func (b *Builder) Build(ctx context.Context, table *sniffer.RawTable, mappings []mapper.ColumnMapping) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if table == nil {
		return &Result{Candidates: []Candidate{}, Errors: []RowError{}}, nil
	}

	rows := table.Rows
	if b.workers == 1 || len(rows) <= b.chunkSize {
		return buildRange(rows, 0, mappings, b.dates), nil
	}

	chunks := (len(rows) + b.chunkSize - 1) / b.chunkSize
	parts := make([]*Result, chunks)
	jobs := make(chan chunkJob, chunks)

	var wg sync.WaitGroup
	for i := 0; i < min(b.workers, chunks); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				parts[job.index] = buildRange(job.rows, job.offset, mappings, b.dates)
			}
		}()
	}

	for i := 0; i < chunks; i++ {
		start := i * b.chunkSize
		end := min(start+b.chunkSize, len(rows))
		jobs <- chunkJob{index: i, offset: start, rows: rows[start:end]}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Candidates: make([]Candidate, 0, len(rows)),
		Errors:     []RowError{},
	}
	for _, p := range parts {
		result.Candidates = append(result.Candidates, p.Candidates...)
		result.Errors = append(result.Errors, p.Errors...)
	}
	return result, nil
}
