// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import "time"

// rollup groups records by the extracted key and sums Amount per group.
// Records whose extractor reports ok=false contribute to no group. Derived
// fresh from the full record set each run; never incremental, never merged
// with prior runs' totals.
func rollup[K comparable](records []SalesRecord, key func(SalesRecord) (K, bool)) map[K]float64 {
	totals := make(map[K]float64)
	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		totals[k] += rec.Amount
	}
	return totals
}

// RollupByOrder returns total sales per order_id.
func RollupByOrder(records []SalesRecord) map[int64]float64 {
	return rollup(records, func(r SalesRecord) (int64, bool) {
		return r.OrderID, true
	})
}

// RollupByDate returns total sales per calendar date. Keys are UTC
// midnights, matching SalesRecord.SaleDate.
func RollupByDate(records []SalesRecord) map[time.Time]float64 {
	return rollup(records, func(r SalesRecord) (time.Time, bool) {
		return r.SaleDate, true
	})
}

// RollupByRegion returns total sales per region, or nil when no record
// carries a region value. The region dimension is optional; a nil result
// means "skip the gold_by_region layer", not "write an empty rollup".
func RollupByRegion(records []SalesRecord) map[string]float64 {
	any := false
	for _, rec := range records {
		if rec.HasRegion() {
			any = true
			break
		}
	}
	if !any {
		return nil
	}
	return rollup(records, func(r SalesRecord) (string, bool) {
		if !r.HasRegion() {
			return "", false
		}
		return *r.Region, true
	})
}
