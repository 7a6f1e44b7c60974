// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/featurebasedb/medallion"
)

// fakeSession is an in-memory stand-in for the wide-column store. Inserts
// are keyed by the first bound argument, matching the layer tables' partition
// keys, so upsert (overwrite) and append (fresh key) behavior is observable.
type fakeSession struct {
	mu      sync.Mutex
	creates map[string]int
	inserts map[string]int
	tables  map[string]map[string][]interface{}

	// failOn, when set, is consulted before applying each statement.
	failOn func(stmt string, args []interface{}) error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		creates: make(map[string]int),
		inserts: make(map[string]int),
		tables:  make(map[string]map[string][]interface{}),
	}
}

func (s *fakeSession) Execute(ctx context.Context, stmt string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != nil {
		if err := s.failOn(stmt, args); err != nil {
			return err
		}
	}

	fields := strings.Fields(stmt)
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS"):
		s.creates[fields[5]]++
	case strings.HasPrefix(stmt, "INSERT INTO"):
		table := fields[2]
		if s.tables[table] == nil {
			s.tables[table] = make(map[string][]interface{})
		}
		s.tables[table][fmt.Sprint(args[0])] = append([]interface{}{}, args...)
		s.inserts[table]++
	default:
		return fmt.Errorf("unrecognized statement: %s", stmt)
	}
	return nil
}

// rows returns the stored rows for a table, keyed by partition key.
func (s *fakeSession) rows(table string) map[string][]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[table]
}

func (s *fakeSession) insertCount(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts[table]
}

// sliceSource is a Source over in-memory rows.
type sliceSource struct {
	schema []string
	rows   [][]interface{}
	i      int
}

type sliceRecord []interface{}

func (r sliceRecord) Data() []interface{} { return r }

func (s *sliceSource) Record() (medallion.Record, error) {
	if s.i >= len(s.rows) {
		return nil, io.EOF
	}
	rec := sliceRecord(s.rows[s.i])
	s.i++
	return rec, nil
}

func (s *sliceSource) Schema() []string { return s.schema }

func (s *sliceSource) Close() error { return nil }
