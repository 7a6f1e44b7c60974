package csv

import (
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/featurebasedb/medallion"
	"github.com/featurebasedb/medallion/errors"
	"github.com/featurebasedb/medallion/logger"
)

// Source produces raw rows from CSV files (or URLs). It implements
// medallion.Source: rows come back in file order, lazily, and the sequence
// is restartable by constructing a new Source over the same files.
type Source struct {
	Files        []string
	Header       []string
	IgnoreHeader bool
	Log          logger.Logger

	schemaLock sync.Mutex
	schema     []string

	records      chan Record
	done         chan struct{}
	once         *sync.Once
	closeOnce    *sync.Once
	expectHeader bool
}

func NewSource() *Source {
	return &Source{
		Log:       logger.NopLogger,
		once:      &sync.Once{},
		closeOnce: &sync.Once{},
		records:   make(chan Record),
		done:      make(chan struct{}),
	}
}

func (s *Source) Record() (medallion.Record, error) {
	s.once.Do(func() { go s.run() })

	select {
	case <-s.done:
		return nil, io.EOF
	default:
	}

	select {
	case rec, ok := <-s.records:
		if !ok {
			return nil, io.EOF
		}
		return rec, rec.err
	case <-s.done:
		return nil, io.EOF
	}
}

type Record struct {
	data []interface{}
	err  error
}

func (r Record) Data() []interface{} {
	return r.data
}

func (s *Source) Schema() []string {
	s.schemaLock.Lock()
	defer s.schemaLock.Unlock()
	return s.schema
}

func (s *Source) run() {
	defer close(s.records)

	s.expectHeader = len(s.Header) == 0
	if !s.expectHeader {
		s.schemaLock.Lock()
		s.schema = trimHeader(s.Header)
		s.schemaLock.Unlock()
	}

	for _, filename := range s.Files {
		if !s.processFile(filename) {
			return
		}
	}
}

// send delivers one record, or reports false if the source was closed
// before a consumer picked it up.
func (s *Source) send(rec Record) bool {
	select {
	case s.records <- rec:
		return true
	case <-s.done:
		return false
	}
}

// processFile reads one file's rows into the record channel. It returns
// false only when the source was closed mid-file; per-file errors are
// delivered as error records and do not stop later files.
func (s *Source) processFile(name string) bool {
	s.Log.Debugf("processFile: %s", name)

	f, err := openFileOrURL(name)
	if err != nil {
		return s.send(Record{err: errors.Wrapf(err, "opening %s", name)})
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 0
	var nextErr error
	if s.expectHeader || s.IgnoreHeader {
		header, err := reader.Read()
		if err != nil {
			return s.send(Record{err: errors.Wrapf(err, "reading header from '%s'", name)})
		}
		if s.expectHeader {
			newSchema := trimHeader(header)
			s.schemaLock.Lock()
			if !reflect.DeepEqual(newSchema, s.schema) {
				if s.schema != nil {
					nextErr = medallion.ErrSchemaChange
				}
				s.schema = newSchema
			}
			s.schemaLock.Unlock()
		}
	}

	row, err := reader.Read()
	for ; err == nil; row, err = reader.Read() {
		schema := s.Schema()
		data := make([]interface{}, len(schema))
		for j, val := range row {
			if j >= len(schema) {
				s.Log.Warnf("'%s': ignoring column(s) beyond the header specification", name)
				break
			}
			data[j] = val
		}
		if !s.send(Record{data: data, err: nextErr}) {
			return false
		}
		nextErr = nil
	}
	if err != io.EOF {
		s.Log.Errorf("processing '%s': '%v', skipping rest of file", name, err)
	}
	return true
}

func trimHeader(header []string) []string {
	schema := make([]string, len(header))
	for i, col := range header {
		schema[i] = strings.TrimSpace(col)
	}
	return schema
}

func openFileOrURL(name string) (io.ReadCloser, error) {
	var content io.ReadCloser
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, errors.Wrap(err, "getting via http")
		}
		if resp.StatusCode > 299 {
			return nil, errors.Errorf("got status %d via http.Get", resp.StatusCode)
		}
		content = resp.Body
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, "opening file")
		}
		content = f
	}
	return content, nil
}

// Close releases the producer goroutine. Records not yet consumed are
// discarded; subsequent Record calls return io.EOF.
func (s *Source) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
