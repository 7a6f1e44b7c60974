// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"context"

	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
)

// Table names for the three layers.
const (
	TableBronze       = "bronze_table"
	TableSilver       = "silver_table"
	TableGoldByOrder  = "gold_by_order"
	TableGoldByDate   = "gold_by_date"
	TableGoldByRegion = "gold_by_region"
)

// createTableStmts are idempotent: IF NOT EXISTS makes re-provisioning a
// no-op, and an existing table's shape is never altered.
var createTableStmts = []string{
	`CREATE TABLE IF NOT EXISTS ` + TableBronze + ` (
		order_id bigint PRIMARY KEY,
		sale_date date,
		amount double
	)`,
	`CREATE TABLE IF NOT EXISTS ` + TableSilver + ` (
		sale_id uuid PRIMARY KEY,
		order_id bigint,
		sale_date date,
		amount double
	)`,
	`CREATE TABLE IF NOT EXISTS ` + TableGoldByOrder + ` (
		order_id bigint PRIMARY KEY,
		total_sales double
	)`,
	`CREATE TABLE IF NOT EXISTS ` + TableGoldByDate + ` (
		sale_date date PRIMARY KEY,
		total_sales double
	)`,
	`CREATE TABLE IF NOT EXISTS ` + TableGoldByRegion + ` (
		region text PRIMARY KEY,
		total_sales double
	)`,
}

// Provisioner ensures the layer tables exist before any write. Any creation
// error is fatal to the run; it is propagated, not retried.
type Provisioner struct {
	Session Session
	Log     logger.Logger
}

func NewProvisioner(session Session) *Provisioner {
	return &Provisioner{
		Session: session,
		Log:     logger.NopLogger,
	}
}

func (p *Provisioner) log() logger.Logger {
	if p.Log == nil {
		return logger.NopLogger
	}
	return p.Log
}

// EnsureSchemas creates the bronze, silver and gold tables if absent. Safe
// to call every run.
func (p *Provisioner) EnsureSchemas(ctx context.Context) error {
	for _, stmt := range createTableStmts {
		if err := p.Session.Execute(ctx, stmt); err != nil {
			return errors.Wrap(
				errors.Newf(ErrProvisioningFailed, "creating table: %v", err),
				"ensuring schemas")
		}
	}
	p.log().Debugf("ensured %d layer tables", len(createTableStmts))
	return nil
}
