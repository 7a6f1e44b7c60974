// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package medallion implements a layered materialization pipeline for
// tabular sales data backed by a wide-column store. Validated records are
// written to three progressively refined layers: bronze (raw copy keyed by
// the business identifier), silver (append-only history under a generated
// key), and gold (per-dimension rollups recomputed from scratch each run).
package medallion

import (
	"context"

	"github.com/featurebasedb/medallion/errors"
)

var (
	// ErrSchemaChange is returned from Source.Record when the returned
	// record has a different schema from the previous record. Call
	// Source.Schema() to fetch the new column layout before decoding.
	ErrSchemaChange = errors.Errorf("this record has a different schema from the previous record")
)

// Error codes for the pipeline's failure taxonomy. Row- and record-level
// codes are absorbed locally and surfaced as counts; the provisioning and
// connectivity codes are fatal to a run.
const (
	// ErrRowInvalid marks a row dropped during normalization because a
	// required field failed to parse.
	ErrRowInvalid errors.Code = "RowInvalid"

	// ErrWriteFailed marks an individual record write the store rejected.
	ErrWriteFailed errors.Code = "WriteFailed"

	// ErrProvisioningFailed marks a failed schema creation. Schema is a
	// hard precondition for every write, so this halts the run.
	ErrProvisioningFailed errors.Code = "ProvisioningFailed"

	// ErrConnectivityLost marks a store session that has become unusable.
	// Not retryable within a run.
	ErrConnectivityLost errors.Code = "ConnectivityLost"

	// ErrMissingIDColumn marks a batch rejected because the source has no
	// identifier column and the normalizer was configured to reject rather
	// than substitute a placeholder.
	ErrMissingIDColumn errors.Code = "MissingIDColumn"
)

type (
	// Source is an interface implemented by producers of tabular data which
	// can be materialized by the pipeline. Each Record returned from Record
	// is described by the column names returned from Source.Schema directly
	// after the call to Source.Record. Source implementations are
	// fundamentally not threadsafe (due to the interplay between Record and
	// Schema).
	Source interface {
		// Record returns a data record, and an optional error. io.EOF
		// signals a cleanly exhausted source. If the error is
		// ErrSchemaChange, the record is valid, but one should call
		// Source.Schema to learn how its fields line up.
		Record() (Record, error)

		// Schema returns the column names which apply to the most recent
		// Record returned from Source.Record.
		Schema() []string

		Close() error
	}

	Record interface {
		// Data returns the record's values, positionally matching the
		// column names from Source.Schema.
		Data() []interface{}
	}

	// Session is an opaque handle on the wide-column store. Connection
	// setup, authentication and keyspace selection are the caller's
	// concern; the pipeline only executes statements. Implementations must
	// report an ErrConnectivityLost-coded error when the session has become
	// unusable, so the pipeline can distinguish a dead store from a
	// rejected record.
	Session interface {
		Execute(ctx context.Context, stmt string, args ...interface{}) error
	}
)

// RawRow is a single source row viewed as a mapping from column name to
// untyped value. It is transient: owned by the normalizer for the duration
// of a single pass and never retained.
type RawRow map[string]interface{}
