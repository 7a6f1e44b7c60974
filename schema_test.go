// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion_test

import (
	"context"
	"strings"
	"testing"

	"github.com/featurebasedb/medallion"
	"github.com/featurebasedb/medallion/errors"
)

func TestEnsureSchemasIdempotent(t *testing.T) {
	session := newFakeSession()
	p := medallion.NewProvisioner(session)

	for i := 0; i < 2; i++ {
		if err := p.EnsureSchemas(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	tables := []string{
		medallion.TableBronze,
		medallion.TableSilver,
		medallion.TableGoldByOrder,
		medallion.TableGoldByDate,
		medallion.TableGoldByRegion,
	}
	for _, table := range tables {
		if got := session.creates[table]; got != 2 {
			t.Errorf("%s: expected 2 idempotent creates, got %d", table, got)
		}
	}
}

func TestEnsureSchemasFailure(t *testing.T) {
	session := newFakeSession()
	session.failOn = func(stmt string, args []interface{}) error {
		if strings.Contains(stmt, medallion.TableGoldByDate) {
			return errors.Errorf("keyspace unavailable")
		}
		return nil
	}
	p := medallion.NewProvisioner(session)

	err := p.EnsureSchemas(context.Background())
	if !errors.Is(err, medallion.ErrProvisioningFailed) {
		t.Fatalf("expected ProvisioningFailed error, got: %v", err)
	}
}
