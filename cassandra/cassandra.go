// Package cassandra provides the gocql-backed store session used by the
// materialization pipeline. Everything above this package talks to the
// medallion.Session interface; only Open and the error classification here
// know about gocql.
package cassandra

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/featurebasedb/medallion"
	"github.com/featurebasedb/medallion/errors"
	"github.com/gocql/gocql"
)

// DefaultHosts are the default hosts in the cassandra cluster.
var DefaultHosts = []string{"localhost"}

const (
	// DefaultKeyspace is the default keyspace used in cassandra.
	DefaultKeyspace = "salesdata"

	// DefaultTimeout is the default per-statement timeout.
	DefaultTimeout = 5 * time.Second
)

// Config carries connection parameters for Open. The zero value connects to
// localhost with the default keyspace, unauthenticated.
type Config struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
}

// Session is a live connection to the cassandra cluster implementing
// medallion.Session. The session is shared by concurrent writers; each
// Execute is an independent statement, never part of a held transaction.
type Session struct {
	session *gocql.Session
}

var _ medallion.Session = (*Session)(nil)

// Open connects to the cassandra cluster. A failure here is a connectivity
// error: the pipeline cannot run without a usable session.
func Open(cfg Config) (*Session, error) {
	hosts := cfg.Hosts
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}

	config := gocql.NewCluster(hosts...)
	config.Keyspace = cfg.Keyspace
	if config.Keyspace == "" {
		config.Keyspace = DefaultKeyspace
	}
	config.Consistency = gocql.One
	config.Timeout = cfg.Timeout
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	config.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}
	if cfg.Username != "" {
		config.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := config.CreateSession()
	if err != nil {
		return nil, errors.Wrap(
			errors.Newf(medallion.ErrConnectivityLost, "connecting to cassandra: %v", err),
			"creating session")
	}
	return &Session{session: session}, nil
}

// Execute runs a single statement. Errors indicating the session itself is
// unusable come back coded medallion.ErrConnectivityLost; anything else is
// a statement-level rejection the caller may absorb.
func (s *Session) Execute(ctx context.Context, stmt string, args ...interface{}) error {
	err := s.session.Query(stmt, args...).WithContext(ctx).Exec()
	return classify(err)
}

// Close closes the connection to the cassandra cluster.
func (s *Session) Close() error {
	if s.session != nil {
		s.session.Close()
	}
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.Is(err, gocql.ErrNoConnections) ||
		goerrors.Is(err, gocql.ErrSessionClosed) ||
		goerrors.Is(err, gocql.ErrConnectionClosed) {
		return errors.Newf(medallion.ErrConnectivityLost, "session unusable: %v", err)
	}
	return err
}
