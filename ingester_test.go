// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion_test

import (
	"reflect"
	"testing"

	"github.com/featurebasedb/medallion"
)

func TestMainRun(t *testing.T) {
	session := newFakeSession()

	m := medallion.NewMain()
	m.NewSession = func() (medallion.Session, error) {
		return session, nil
	}
	m.NewSource = func() (medallion.Source, error) {
		return salesSource([][]interface{}{
			{"1", "2024-01-01", "10.5"},
			{"2", "2024-01-02", "5"},
		}), nil
	}

	if err := m.Run(); err != nil {
		t.Fatalf("running: %v", err)
	}
	if got := len(session.rows(medallion.TableBronze)); got != 2 {
		t.Errorf("bronze: expected 2 rows, got %d", got)
	}
	if got := len(session.rows(medallion.TableSilver)); got != 2 {
		t.Errorf("silver: expected 2 rows, got %d", got)
	}
}

func TestMainValidatesPolicy(t *testing.T) {
	m := medallion.NewMain()
	m.MissingIDPolicy = "explode"
	m.NewSession = func() (medallion.Session, error) { return newFakeSession(), nil }
	m.NewSource = func() (medallion.Source, error) { return salesSource(nil), nil }

	if err := m.Run(); err == nil {
		t.Fatal("expected an error for an invalid missing-id-policy")
	}
}

func TestMainResolvedColumns(t *testing.T) {
	m := medallion.NewMain()
	m.IDColumn = "OrderID"
	m.DateColumn = ""

	want := []medallion.ColumnMapping{
		{Canonical: "order_id", Source: "OrderID"},
		{Canonical: "sale_date", Source: "sale_date"},
		{Canonical: "amount", Source: "amount"},
		{Canonical: "region", Source: "region"},
	}
	got := m.ResolvedColumns()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMainRequiresWiring(t *testing.T) {
	m := medallion.NewMain()
	if err := m.Run(); err == nil {
		t.Fatal("expected an error when no source is configured")
	}
}
