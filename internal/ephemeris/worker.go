package ephemeris

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
)

// sampleJob is a unit of work for the worker pool.
type sampleJob struct {
	index int
	jd    timesys.JulianDate
}

// sampleResult is the output of a single sample.
type sampleResult struct {
	index int
	row   Row
}

// WorkerPool manages a fixed number of goroutines for parallel sampling.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// Values below one are raised to one.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int { return wp.workers }

// ComputeBatch evaluates b for obs at every instant using the worker pool.
// Rows come back ordered by input position; a failed sample keeps its row
// with Err set. On cancellation the rows computed so far are returned.
func (wp *WorkerPool) ComputeBatch(ctx context.Context, b body.Body, obs geodesy.GeodeticCoordinate, jds []timesys.JulianDate) ([]Row, int, int) {
	if len(jds) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan sampleJob, wp.workers*2)
	results := make(chan sampleResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := sampleResult{index: job.index, row: computeRow(b, obs, job.jd)}
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, jd := range jds {
			select {
			case jobs <- sampleJob{index: i, jd: jd}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results.
	collected := make([]sampleResult, 0, len(jds))
	var successCount, errorCount int

	for result := range results {
		if result.row.Err != nil {
			errorCount++
			wp.logger.Warn("ephemeris sample failed",
				"body", b.Name(),
				"jd", float64(result.row.JD),
				"error", result.row.Err,
			)
		} else {
			successCount++
		}
		collected = append(collected, result)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	rows := make([]Row, len(collected))
	for i, c := range collected {
		rows[i] = c.row
	}

	return rows, successCount, errorCount
}

// computeRow evaluates one sample.
func computeRow(b body.Body, obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) Row {
	row := Row{JD: jd, Time: jd.Time()}

	eq, err := b.PositionAt(jd)
	if err != nil {
		row.Err = err
		return row
	}
	row.Equatorial = eq

	hz, err := body.Observe(b, obs, jd)
	if err != nil {
		row.Err = err
		return row
	}
	row.Horizontal = hz
	return row
}
