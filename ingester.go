// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
)

// Main holds the configuration shared by every medallion ingest command.
// Fields are loaded from flags and environment by commandeer; concrete
// source packages embed Main and install their NewSource hook.
type Main struct {
	CassandraHosts  []string      `help:"Comma separated list of Cassandra hosts."`
	Keyspace        string        `help:"Cassandra keyspace holding the layer tables."`
	Username        string        `help:"Cassandra username. Blank disables authentication."`
	Password        string        `help:"Cassandra password."`
	Timeout         time.Duration `help:"Per-statement timeout enforced by the store session."`
	IDColumn        string        `help:"Source column holding the order identifier."`
	DateColumn      string        `help:"Source column holding the sale date."`
	AmountColumn    string        `help:"Source column holding the sale amount."`
	RegionColumn    string        `help:"Source column holding the region, if the source has one."`
	MissingIDPolicy string        `help:"Behavior when the identifier column is absent: placeholder or reject."`
	Concurrency     int           `short:"c" help:"Number of concurrent per-record writers within a stage."`
	Verbose         bool          `short:"v" help:"Enable debug logging."`
	LogPath         string        `short:"l" help:"Log file to write to. Blank means stderr."`
	DryRun          bool          `help:"Dump the resolved configuration and exit without writing."`

	// NewSource and NewSession are installed by the concrete command
	// wiring, not by flags.
	NewSource  func() (Source, error)  `flag:"-"`
	NewSession func() (Session, error) `flag:"-"`

	log     logger.Logger
	logFile *os.File
}

func NewMain() *Main {
	return &Main{
		CassandraHosts:  []string{"localhost"},
		Keyspace:        "salesdata",
		Timeout:         5 * time.Second,
		IDColumn:        DefaultIDColumn,
		DateColumn:      DefaultDateColumn,
		AmountColumn:    DefaultAmountColumn,
		RegionColumn:    DefaultRegionColumn,
		MissingIDPolicy: string(MissingIDPlaceholder),
		Concurrency:     1,
	}
}

// Log returns the run logger, or nil if setup has not happened yet.
func (m *Main) Log() logger.Logger {
	return m.log
}

// ColumnMapping is one resolved source-to-canonical column assignment.
type ColumnMapping struct {
	Canonical string
	Source    string
}

// ResolvedColumns returns the column mapping the normalizer will apply,
// with unset column names resolved to their defaults. Ordered: identifier,
// date, amount, region.
func (m *Main) ResolvedColumns() []ColumnMapping {
	n := &Normalizer{
		IDColumn:     m.IDColumn,
		DateColumn:   m.DateColumn,
		AmountColumn: m.AmountColumn,
		RegionColumn: m.RegionColumn,
	}
	return []ColumnMapping{
		{DefaultIDColumn, n.idColumn()},
		{DefaultDateColumn, n.dateColumn()},
		{DefaultAmountColumn, n.amountColumn()},
		{DefaultRegionColumn, n.regionColumn()},
	}
}

func (m *Main) setup() error {
	if m.log != nil {
		return nil
	}

	var w io.Writer = os.Stderr
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.logFile = f
		w = f
	}
	if m.Verbose {
		m.log = logger.NewVerboseLogger(w)
	} else {
		m.log = logger.NewStandardLogger(w)
	}

	switch MissingIDPolicy(m.MissingIDPolicy) {
	case MissingIDPlaceholder, MissingIDReject:
	default:
		return errors.Errorf("invalid missing-id-policy %q, choose placeholder or reject", m.MissingIDPolicy)
	}
	return nil
}

// Run executes one batch load with the configured source and session.
func (m *Main) Run() error {
	if err := m.setup(); err != nil {
		return err
	}
	if m.logFile != nil {
		defer m.logFile.Close()
	}
	if m.NewSource == nil {
		return errors.Errorf("no source configured")
	}
	if m.NewSession == nil {
		return errors.Errorf("no store session configured")
	}

	session, err := m.NewSession()
	if err != nil {
		return errors.Wrap(err, "opening store session")
	}
	if closer, ok := session.(io.Closer); ok {
		defer closer.Close()
	}

	source, err := m.NewSource()
	if err != nil {
		return errors.Wrap(err, "opening source")
	}
	defer source.Close()

	pipeline := NewPipeline(source, session)
	pipeline.Concurrency = m.Concurrency
	pipeline.Log = m.log
	pipeline.Normalizer = &Normalizer{
		IDColumn:     m.IDColumn,
		DateColumn:   m.DateColumn,
		AmountColumn: m.AmountColumn,
		RegionColumn: m.RegionColumn,
		MissingID:    MissingIDPolicy(m.MissingIDPolicy),
		Log:          m.log,
	}

	summary, runErr := pipeline.Run(context.Background())
	m.logSummary(summary)
	return runErr
}

func (m *Main) logSummary(s *RunSummary) {
	if s == nil {
		return
	}
	m.log.Infof("run %s in %s: %d rows sourced, %d dropped at normalization",
		s.State, s.Elapsed.Round(time.Millisecond), s.Sourced, s.Dropped.Total())
	layers := []struct {
		name   string
		report *WriteReport
	}{
		{TableBronze, s.Bronze},
		{TableSilver, s.Silver},
		{TableGoldByOrder, s.GoldByOrder},
		{TableGoldByDate, s.GoldByDate},
		{TableGoldByRegion, s.GoldByRegion},
	}
	for _, l := range layers {
		if l.report == nil {
			continue
		}
		m.log.Infof("%s: attempted %d, succeeded %d, failed %d",
			l.name, l.report.Attempted, l.report.Succeeded, l.report.FailureCount())
		for _, f := range l.report.Failures {
			m.log.Warnf("%s: failed write %s: %s", l.name, f.Key, f.Err)
		}
	}
}
