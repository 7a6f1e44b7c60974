// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/featurebasedb/medallion/egpool"
	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
	"github.com/google/uuid"
)

// WriteFailure identifies one record the store rejected.
type WriteFailure struct {
	Key string
	Err string
}

// WriteReport summarizes one layer's write pass. Per-record failures never
// propagate past this type; callers decide whether the counts warrant
// escalation. When writes run concurrently the order of Failures is
// unspecified, but the counts are exact.
type WriteReport struct {
	Attempted int
	Succeeded int
	Failures  []WriteFailure

	mu sync.Mutex
}

func (r *WriteReport) success() {
	r.mu.Lock()
	r.Attempted++
	r.Succeeded++
	r.mu.Unlock()
}

func (r *WriteReport) fail(key string, err error) {
	r.mu.Lock()
	r.Attempted++
	r.Failures = append(r.Failures, WriteFailure{Key: key, Err: err.Error()})
	r.mu.Unlock()
}

// FailureCount returns the number of failed writes.
func (r *WriteReport) FailureCount() int {
	return len(r.Failures)
}

// LayerWriter writes validated records into the layer tables. Each record
// is written independently: one bad row never blocks the remaining rows.
// Only a connectivity loss aborts a batch, returned alongside the partial
// report.
type LayerWriter struct {
	Session Session

	// Concurrency > 1 runs per-record writes on a bounded worker pool.
	// Safe because no record's write depends on another's outcome.
	Concurrency int

	Log logger.Logger
}

func NewLayerWriter(session Session) *LayerWriter {
	return &LayerWriter{
		Session:     session,
		Concurrency: 1,
		Log:         logger.NopLogger,
	}
}

func (w *LayerWriter) log() logger.Logger {
	if w.Log == nil {
		return logger.NopLogger
	}
	return w.Log
}

const (
	insertBronzeStmt = `INSERT INTO ` + TableBronze + ` (order_id, sale_date, amount) VALUES (?, ?, ?)`
	insertSilverStmt = `INSERT INTO ` + TableSilver + ` (sale_id, order_id, sale_date, amount) VALUES (?, ?, ?, ?)`
)

// WriteBronze upserts each record keyed by order_id. A repeated order_id
// silently overwrites the prior entry: last write wins, no versioning.
func (w *LayerWriter) WriteBronze(ctx context.Context, records []SalesRecord) (*WriteReport, error) {
	return w.writeEach(ctx, TableBronze, len(records), func(i int) (string, error) {
		rec := records[i]
		err := w.Session.Execute(ctx, insertBronzeStmt, rec.OrderID, rec.SaleDate, rec.Amount)
		return fmt.Sprintf("order_id=%d", rec.OrderID), err
	})
}

// WriteSilver inserts each record under a freshly generated sale_id.
// Repeated runs accumulate rows rather than overwriting: silver is an
// append-only history of observed sales events.
func (w *LayerWriter) WriteSilver(ctx context.Context, records []SalesRecord) (*WriteReport, error) {
	return w.writeEach(ctx, TableSilver, len(records), func(i int) (string, error) {
		rec := records[i]
		saleID := uuid.New()
		err := w.Session.Execute(ctx, insertSilverStmt, saleID.String(), rec.OrderID, rec.SaleDate, rec.Amount)
		return fmt.Sprintf("order_id=%d sale_id=%s", rec.OrderID, saleID), err
	})
}

// WriteGoldByOrder upserts per-order totals. Each run's totals replace the
// stored total for that key; they are recomputed from the full input set,
// never added to a prior run's.
func (w *LayerWriter) WriteGoldByOrder(ctx context.Context, rollup map[int64]float64) (*WriteReport, error) {
	keys := sortedKeys(rollup)
	stmt := `INSERT INTO ` + TableGoldByOrder + ` (order_id, total_sales) VALUES (?, ?)`
	return w.writeEach(ctx, TableGoldByOrder, len(keys), func(i int) (string, error) {
		k := keys[i]
		err := w.Session.Execute(ctx, stmt, k, rollup[k])
		return fmt.Sprintf("order_id=%d", k), err
	})
}

// WriteGoldByDate upserts per-date totals.
func (w *LayerWriter) WriteGoldByDate(ctx context.Context, rollup map[time.Time]float64) (*WriteReport, error) {
	keys := make([]time.Time, 0, len(rollup))
	for k := range rollup {
		keys = append(keys, k)
	}
	sortTimes(keys)
	stmt := `INSERT INTO ` + TableGoldByDate + ` (sale_date, total_sales) VALUES (?, ?)`
	return w.writeEach(ctx, TableGoldByDate, len(keys), func(i int) (string, error) {
		k := keys[i]
		err := w.Session.Execute(ctx, stmt, k, rollup[k])
		return fmt.Sprintf("sale_date=%s", k.Format("2006-01-02")), err
	})
}

// WriteGoldByRegion upserts per-region totals.
func (w *LayerWriter) WriteGoldByRegion(ctx context.Context, rollup map[string]float64) (*WriteReport, error) {
	keys := sortedKeys(rollup)
	stmt := `INSERT INTO ` + TableGoldByRegion + ` (region, total_sales) VALUES (?, ?)`
	return w.writeEach(ctx, TableGoldByRegion, len(keys), func(i int) (string, error) {
		k := keys[i]
		err := w.Session.Execute(ctx, stmt, k, rollup[k])
		return fmt.Sprintf("region=%s", k), err
	})
}

// writeEach runs one write per index, absorbing record-level failures into
// the report. On a connectivity-coded error it stops issuing writes and
// returns the error; rows not yet attempted stay uncounted.
func (w *LayerWriter) writeEach(ctx context.Context, table string, n int, write func(i int) (string, error)) (*WriteReport, error) {
	report := &WriteReport{}
	var fatal atomic.Value

	record := func(i int) {
		if fatal.Load() != nil {
			return
		}
		key, err := write(i)
		switch {
		case err == nil:
			report.success()
		case errors.Is(err, ErrConnectivityLost):
			report.fail(key, err)
			fatal.Store(err)
		default:
			report.fail(key, err)
			w.log().Errorf("writing to %s (%s): %v", table, key, err)
			CounterWritesFailed.WithLabelValues(table).Inc()
		}
	}

	if w.Concurrency > 1 {
		eg := egpool.Group{PoolSize: w.Concurrency}
		for i := 0; i < n; i++ {
			i := i
			eg.Go(func() error {
				record(i)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for i := 0; i < n; i++ {
			if fatal.Load() != nil {
				break
			}
			record(i)
		}
	}

	CounterWritesSucceeded.WithLabelValues(table).Add(float64(report.Succeeded))

	if f := fatal.Load(); f != nil {
		return report, errors.Wrapf(f.(error), "writing to %s", table)
	}
	return report, nil
}

// Gold writes iterate rollup keys in sorted order so that failure reports
// are stable in the sequential case.
func sortedKeys[K int64 | string](m map[K]float64) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortTimes(keys []time.Time) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
}
