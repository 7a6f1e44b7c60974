// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"context"
	"time"

	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
)

// State is a pipeline run state. Runs move strictly forward through the
// non-terminal states; StateCompleted and StateFailed are terminal.
type State int

const (
	StateStart State = iota
	StateSchemaProvisioned
	StateNormalized
	StateBronzeWritten
	StateSilverWritten
	StateAggregated
	StateGoldWritten
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateSchemaProvisioned:
		return "schema-provisioned"
	case StateNormalized:
		return "normalized"
	case StateBronzeWritten:
		return "bronze-written"
	case StateSilverWritten:
		return "silver-written"
	case StateAggregated:
		return "aggregated"
	case StateGoldWritten:
		return "gold-written"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// RunSummary is the structured per-stage outcome of one pipeline run. It is
// populated as far as the run got; a failed run carries the reports of every
// stage that finished before the fatal condition.
type RunSummary struct {
	State   State
	Sourced int
	Dropped DropStats

	Bronze       *WriteReport
	Silver       *WriteReport
	GoldByOrder  *WriteReport
	GoldByDate   *WriteReport
	GoldByRegion *WriteReport // nil when the region dimension was skipped

	Elapsed time.Duration
}

// WriteFailures returns the total count of record-level write failures
// across all layers.
func (s *RunSummary) WriteFailures() int {
	n := 0
	for _, r := range []*WriteReport{s.Bronze, s.Silver, s.GoldByOrder, s.GoldByDate, s.GoldByRegion} {
		if r != nil {
			n += r.FailureCount()
		}
	}
	return n
}

// Pipeline sequences one batch load: provisioning, normalization, bronze
// and silver writes, aggregation, gold writes. Data flows strictly forward;
// nothing reads back from the store during a run, and there is no rollback
// for layers already written when a later stage fails.
type Pipeline struct {
	Source     Source
	Session    Session
	Normalizer *Normalizer

	// Concurrency bounds the per-record write workers within a stage.
	Concurrency int

	Log logger.Logger

	state State
}

func NewPipeline(source Source, session Session) *Pipeline {
	return &Pipeline{
		Source:      source,
		Session:     session,
		Normalizer:  NewNormalizer(),
		Concurrency: 1,
		Log:         logger.NopLogger,
	}
}

func (p *Pipeline) log() logger.Logger {
	if p.Log == nil {
		return logger.NopLogger
	}
	return p.Log
}

// State returns the state the most recent run reached.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) transition(s State) {
	p.log().Debugf("pipeline: %s -> %s", p.state, s)
	p.state = s
}

// Run executes one batch load. Per-record failures accumulate in the
// summary's WriteReports and never fail the run; only a provisioning error
// or a connectivity loss does. The returned summary is valid in both cases.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	p.state = StateStart
	summary := &RunSummary{State: StateStart}

	fail := func(err error) (*RunSummary, error) {
		p.transition(StateFailed)
		summary.State = StateFailed
		summary.Elapsed = time.Since(start)
		CounterRunsFailed.Inc()
		return summary, err
	}

	prov := &Provisioner{Session: p.Session, Log: p.log()}
	if err := prov.EnsureSchemas(ctx); err != nil {
		return fail(err)
	}
	p.transition(StateSchemaProvisioned)

	norm := p.Normalizer
	if norm == nil {
		norm = NewNormalizer()
	}
	if norm.Log == nil || norm.Log == logger.NopLogger {
		norm.Log = p.log()
	}

	tracker := &ProgressTracker{}
	records, dropped, err := norm.Normalize(tracker.Track(p.Source))
	if err != nil {
		return fail(errors.Wrap(err, "normalizing"))
	}
	summary.Sourced = int(tracker.Check())
	summary.Dropped = dropped
	CounterRowsDropped.Add(float64(dropped.Total()))
	p.transition(StateNormalized)
	p.log().Infof("normalized %d of %d rows (%d dropped)", len(records), summary.Sourced, dropped.Total())
	for i := 0; i < len(records) && i < 5; i++ {
		p.log().Debugf("record %d: %+v", i, records[i])
	}

	writer := &LayerWriter{Session: p.Session, Concurrency: p.Concurrency, Log: p.log()}

	summary.Bronze, err = writer.WriteBronze(ctx, records)
	if err != nil {
		return fail(err)
	}
	p.transition(StateBronzeWritten)
	p.log().Infof("bronze write complete: %d/%d", summary.Bronze.Succeeded, summary.Bronze.Attempted)

	summary.Silver, err = writer.WriteSilver(ctx, records)
	if err != nil {
		return fail(err)
	}
	p.transition(StateSilverWritten)
	p.log().Infof("silver write complete: %d/%d", summary.Silver.Succeeded, summary.Silver.Attempted)

	byOrder := RollupByOrder(records)
	byDate := RollupByDate(records)
	byRegion := RollupByRegion(records)
	p.transition(StateAggregated)

	summary.GoldByOrder, err = writer.WriteGoldByOrder(ctx, byOrder)
	if err != nil {
		return fail(err)
	}
	summary.GoldByDate, err = writer.WriteGoldByDate(ctx, byDate)
	if err != nil {
		return fail(err)
	}
	if byRegion == nil {
		p.log().Infof("no region values in input; skipping %s", TableGoldByRegion)
	} else {
		summary.GoldByRegion, err = writer.WriteGoldByRegion(ctx, byRegion)
		if err != nil {
			return fail(err)
		}
	}
	p.transition(StateGoldWritten)
	p.log().Infof("gold write complete: %d order, %d date, %d region keys",
		len(byOrder), len(byDate), len(byRegion))

	p.transition(StateCompleted)
	summary.State = StateCompleted
	summary.Elapsed = time.Since(start)
	CounterRunsCompleted.Inc()

	if n := summary.WriteFailures(); n > 0 {
		p.log().Warnf("run completed with %d write failures", n)
	}
	return summary, nil
}
