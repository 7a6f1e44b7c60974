package csv

import (
	"io"
	"os"
	"reflect"
	"testing"

	"github.com/featurebasedb/medallion"
	"github.com/featurebasedb/medallion/logger"
)

func writeTempFile(t *testing.T, data string) string {
	f, err := os.CreateTemp(t.TempDir(), "")
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	defer f.Close()

	_, err = io.WriteString(f, data)
	if err != nil {
		t.Fatalf("writing string: %v", err)
	}

	return f.Name()
}

func drain(t *testing.T, s *Source) ([][]interface{}, []string) {
	var rows [][]interface{}
	for {
		rec, err := s.Record()
		if err == io.EOF {
			break
		}
		if err != nil && err != medallion.ErrSchemaChange {
			t.Fatalf("reading record: %v", err)
		}
		rows = append(rows, rec.Data())
	}
	return rows, s.Schema()
}

func TestCSVSource(t *testing.T) {
	file := `
order_id,sale_date,amount
1,2024-01-01,10.5
2,2024-01-02,5
`[1:]
	name := writeTempFile(t, file)

	s := NewSource()
	s.Files = []string{name}
	s.Log = logger.NewLogfLogger(t)

	rows, schema := drain(t, s)

	expSchema := []string{"order_id", "sale_date", "amount"}
	if !reflect.DeepEqual(schema, expSchema) {
		t.Errorf("schema: got %v, expected %v", schema, expSchema)
	}
	exp := [][]interface{}{
		{"1", "2024-01-01", "10.5"},
		{"2", "2024-01-02", "5"},
	}
	if !reflect.DeepEqual(rows, exp) {
		t.Errorf("got/exp\n%v\n%v", rows, exp)
	}
}

func TestCSVSourceCustomHeader(t *testing.T) {
	file := `
1,2024-01-01,10.5
2,2024-01-02,5
`[1:]
	name := writeTempFile(t, file)

	s := NewSource()
	s.Files = []string{name}
	s.Header = []string{"order_id", "sale_date", "amount"}
	s.Log = logger.NewLogfLogger(t)

	rows, schema := drain(t, s)
	if got := len(schema); got != 3 {
		t.Fatalf("schema: expected 3 columns, got %d", got)
	}
	if got := len(rows); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}

func TestCSVSourceIgnoreHeader(t *testing.T) {
	file := `
Order ID,Order Date,TotalRevenue
1,2024-01-01,10.5
`[1:]
	name := writeTempFile(t, file)

	s := NewSource()
	s.Files = []string{name}
	s.Header = []string{"order_id", "sale_date", "amount"}
	s.IgnoreHeader = true
	s.Log = logger.NewLogfLogger(t)

	rows, schema := drain(t, s)
	if schema[0] != "order_id" {
		t.Errorf("expected the passed header to win, got %v", schema)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestCSVSourceMultipleFiles(t *testing.T) {
	header := "order_id,sale_date,amount\n"
	name1 := writeTempFile(t, header+"1,2024-01-01,1\n")
	name2 := writeTempFile(t, header+"2,2024-01-02,2\n3,2024-01-03,3\n")

	s := NewSource()
	s.Files = []string{name1, name2}
	s.Log = logger.NewLogfLogger(t)

	rows, _ := drain(t, s)
	if got := len(rows); got != 3 {
		t.Errorf("expected 3 rows across files, got %d", got)
	}
}

func TestCSVSourceSchemaChange(t *testing.T) {
	name1 := writeTempFile(t, "order_id,sale_date,amount\n1,2024-01-01,1\n")
	name2 := writeTempFile(t, "order_id,sale_date,amount,region\n2,2024-01-02,2,east\n")

	s := NewSource()
	s.Files = []string{name1, name2}
	s.Log = logger.NewLogfLogger(t)

	sawChange := false
	n := 0
	for {
		rec, err := s.Record()
		if err == io.EOF {
			break
		}
		if err == medallion.ErrSchemaChange {
			sawChange = true
			if got := len(s.Schema()); got != 4 {
				t.Errorf("expected 4 columns after change, got %d", got)
			}
		} else if err != nil {
			t.Fatalf("reading record: %v", err)
		}
		if rec != nil {
			n++
		}
	}
	if !sawChange {
		t.Error("expected a schema change signal")
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	s := NewSource()
	s.Files = []string{"/does/not/exist.csv"}
	s.Log = logger.NopLogger

	_, err := s.Record()
	if err == nil || err == io.EOF {
		t.Fatalf("expected an open error, got: %v", err)
	}
}

func TestCSVSourceClose(t *testing.T) {
	file := `
order_id,sale_date,amount
1,2024-01-01,10.5
2,2024-01-02,5
3,2024-01-03,7
`[1:]
	name := writeTempFile(t, file)

	s := NewSource()
	s.Files = []string{name}
	s.Log = logger.NewLogfLogger(t)

	if _, err := s.Record(); err != nil {
		t.Fatalf("reading first record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if _, err := s.Record(); err != io.EOF {
		t.Errorf("expected io.EOF after close, got: %v", err)
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("closing again: %v", err)
	}
}

func TestNewMainWiring(t *testing.T) {
	m := NewMain()
	if m.NewSource == nil || m.NewSession == nil {
		t.Fatal("expected source and session hooks to be installed")
	}
	if _, err := m.NewSource(); err == nil {
		t.Error("expected an error with no files configured")
	}
}
