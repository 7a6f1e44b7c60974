package csv

import (
	"github.com/featurebasedb/medallion"
	"github.com/featurebasedb/medallion/cassandra"
	"github.com/featurebasedb/medallion/errors"
)

type Main struct {
	medallion.Main `flag:"!embed"`
	Files          []string `help:"CSV file paths or URLs to load."`
	Header         []string `help:"Optional header. If not passed, the first line of each file is used."`
	IgnoreHeader   bool     `help:"Together with Header, ignore the first line of each file."`
}

func NewMain() *Main {
	m := &Main{
		Main: *medallion.NewMain(),
	}
	m.NewSource = func() (medallion.Source, error) {
		if len(m.Files) == 0 {
			return nil, errors.Errorf("must provide at least one file")
		}
		source := NewSource()
		source.Files = m.Files
		source.Header = m.Header
		source.IgnoreHeader = m.IgnoreHeader
		source.Log = m.Log()
		return source, nil
	}
	m.NewSession = func() (medallion.Session, error) {
		session, err := cassandra.Open(cassandra.Config{
			Hosts:    m.CassandraHosts,
			Keyspace: m.Keyspace,
			Username: m.Username,
			Password: m.Password,
			Timeout:  m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "opening cassandra session")
		}
		return session, nil
	}
	return m
}
