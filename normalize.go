// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import (
	"io"

	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
)

// MissingIDPolicy controls what the normalizer does when the source has no
// identifier column at all.
type MissingIDPolicy string

const (
	// MissingIDPlaceholder substitutes PlaceholderOrderID for every row.
	// This is the historical behavior; note that it conflates "no
	// identifiers supplied" with "all records share identifier 0", so
	// bronze rows from such a batch collapse into a single key.
	MissingIDPlaceholder MissingIDPolicy = "placeholder"

	// MissingIDReject refuses the whole batch before any write.
	MissingIDReject MissingIDPolicy = "reject"
)

// PlaceholderOrderID is the identifier substituted under
// MissingIDPlaceholder.
const PlaceholderOrderID int64 = 0

const (
	DefaultIDColumn     = "order_id"
	DefaultDateColumn   = "sale_date"
	DefaultAmountColumn = "amount"
	DefaultRegionColumn = "region"
)

// Normalizer parses and validates raw rows into SalesRecords, dropping any
// row whose required fields do not parse. It holds no state across calls;
// re-invoking with the same input yields the same output.
type Normalizer struct {
	IDColumn     string
	DateColumn   string
	AmountColumn string
	RegionColumn string
	MissingID    MissingIDPolicy

	Log logger.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		IDColumn:     DefaultIDColumn,
		DateColumn:   DefaultDateColumn,
		AmountColumn: DefaultAmountColumn,
		RegionColumn: DefaultRegionColumn,
		MissingID:    MissingIDPlaceholder,
		Log:          logger.NopLogger,
	}
}

func (n *Normalizer) log() logger.Logger {
	if n.Log == nil {
		return logger.NopLogger
	}
	return n.Log
}

// DropStats counts rows excluded during normalization, by the first
// required field that failed to parse.
type DropStats struct {
	BadOrderID  int
	BadSaleDate int
	BadAmount   int
}

func (d DropStats) Total() int {
	return d.BadOrderID + d.BadSaleDate + d.BadAmount
}

// Normalize drains src and returns the surviving records in input order.
func (n *Normalizer) Normalize(src Source) ([]SalesRecord, DropStats, error) {
	var rows []RawRow
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil && err != ErrSchemaChange {
			return nil, DropStats{}, errors.Wrap(err, "reading source")
		}
		schema := src.Schema()
		data := rec.Data()
		row := make(RawRow, len(schema))
		for i, col := range schema {
			if i < len(data) {
				row[col] = data[i]
			}
		}
		rows = append(rows, row)
	}
	return n.NormalizeRows(rows)
}

// NormalizeRows validates a batch of raw rows. Rows with an unparseable
// required field are dropped and counted; they never appear downstream. The
// returned error is non-nil only for a batch-level rejection (missing
// identifier column under MissingIDReject).
func (n *Normalizer) NormalizeRows(rows []RawRow) ([]SalesRecord, DropStats, error) {
	var stats DropStats

	idPresent := false
	for _, row := range rows {
		if _, ok := row[n.idColumn()]; ok {
			idPresent = true
			break
		}
	}
	if !idPresent && len(rows) > 0 {
		if n.MissingID == MissingIDReject {
			return nil, stats, errors.Newf(ErrMissingIDColumn,
				"source has no %q column", n.idColumn())
		}
		n.log().Warnf("source has no %q column; substituting placeholder order_id %d for all rows",
			n.idColumn(), PlaceholderOrderID)
	}

	out := make([]SalesRecord, 0, len(rows))
	for i, row := range rows {
		rec, badField := n.normalizeRow(row)
		if badField != "" {
			switch badField {
			case n.idColumn():
				stats.BadOrderID++
			case n.dateColumn():
				stats.BadSaleDate++
			default:
				stats.BadAmount++
			}
			n.log().Debugf("dropping row %d: unparseable %s (%v)", i, badField, row[badField])
			continue
		}
		out = append(out, rec)
	}

	if stats.Total() > 0 {
		n.log().Infof("normalization dropped %d of %d rows (order_id: %d, sale_date: %d, amount: %d)",
			stats.Total(), len(rows), stats.BadOrderID, stats.BadSaleDate, stats.BadAmount)
	}
	return out, stats, nil
}

// NormalizeRow validates a single raw row. The returned error is coded
// ErrRowInvalid and names the first required field that failed to parse. A
// missing identifier column falls back to the placeholder regardless of
// policy; batch-level rejection is NormalizeRows' concern.
func (n *Normalizer) NormalizeRow(row RawRow) (SalesRecord, error) {
	rec, badField := n.normalizeRow(row)
	if badField != "" {
		return SalesRecord{}, errors.Newf(ErrRowInvalid, "unparseable %s", badField)
	}
	return rec, nil
}

func (n *Normalizer) normalizeRow(row RawRow) (SalesRecord, string) {
	var rec SalesRecord

	if raw, ok := row[n.idColumn()]; !ok {
		rec.OrderID = PlaceholderOrderID
	} else if id, ok := coerceInt64(raw); ok {
		rec.OrderID = id
	} else {
		return SalesRecord{}, n.idColumn()
	}

	if date, ok := coerceDate(row[n.dateColumn()]); ok {
		rec.SaleDate = date
	} else {
		return SalesRecord{}, n.dateColumn()
	}

	if amount, ok := coerceFloat64(row[n.amountColumn()]); ok {
		rec.Amount = amount
	} else {
		return SalesRecord{}, n.amountColumn()
	}

	if raw, ok := row[n.regionColumn()]; ok && raw != nil {
		if region, ok := coerceString(raw); ok {
			rec.Region = &region
		}
	}

	return rec, ""
}

func (n *Normalizer) idColumn() string {
	if n.IDColumn == "" {
		return DefaultIDColumn
	}
	return n.IDColumn
}

func (n *Normalizer) dateColumn() string {
	if n.DateColumn == "" {
		return DefaultDateColumn
	}
	return n.DateColumn
}

func (n *Normalizer) amountColumn() string {
	if n.AmountColumn == "" {
		return DefaultAmountColumn
	}
	return n.AmountColumn
}

func (n *Normalizer) regionColumn() string {
	if n.RegionColumn == "" {
		return DefaultRegionColumn
	}
	return n.RegionColumn
}
