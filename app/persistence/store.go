package persistence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when the requested row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrReference is returned when a write violates a foreign key
	ErrReference = errors.New("foreign key violation")
	// ErrInvalidValue is returned when the database rejects a value, like an out of range number
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnavailable wraps connection and transaction failures of the store
	ErrUnavailable = errors.New("store unavailable")
	// ErrConfigMissing is returned when required connection parameters are not set
	ErrConfigMissing = errors.New("store configuration missing")
)

// Dialect is a supported database flavor
type Dialect string

// supported dialects
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Params defines how to connect to the store
type Params struct {
	Dialect  Dialect
	Path     string // sqlite file
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// Validate checks that all parameters required by the dialect are set
func (p Params) Validate() error {
	var missing []string
	switch p.Dialect {
	case DialectSQLite:
		if p.Path == "" {
			missing = append(missing, "path")
		}
	case DialectPostgres:
		for _, v := range []struct{ name, val string }{
			{"host", p.Host}, {"user", p.User}, {"password", p.Password}, {"name", p.Name},
		} {
			if v.val == "" {
				missing = append(missing, v.name)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported dialect %q", ErrConfigMissing, p.Dialect)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", ErrConfigMissing, p.Dialect, strings.Join(missing, ", "))
	}
	return nil
}

func (p Params) dsn() string {
	if p.Dialect == DialectSQLite {
		return p.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(port)),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// Store implements persistence of program records on top of sqlx
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// New opens the store, checks the connection and makes sure the schema exists
func New(ctx context.Context, p Params) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(string(p.Dialect), p.dsn())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, p.Dialect, err)
	}
	if p.MaxConns > 0 {
		db.SetMaxOpenConns(p.MaxConns)
		db.SetMaxIdleConns(p.MaxConns)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close %s connection: %v", p.Dialect, closeErr)
		}
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnavailable, p.Dialect, err)
	}

	s := &Store{db: db, dialect: p.Dialect}
	if err := s.EnsureSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (also failed to close db: %v)", err, closeErr)
		}
		return nil, err
	}

	log.Printf("[DEBUG] %s schema ensured", p.Dialect)
	return s, nil
}

// EnsureSchema creates missing tables and indexes, existing ones are left untouched
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.wrap("ensure schema", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, query := range schema(s.dialect) {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return s.wrap("ensure schema", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("ensure schema", err)
	}
	return nil
}

// Tables returns names of user tables present in the store
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	if s.dialect == DialectPostgres {
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`
	}

	res := []string{}
	if err := s.db.SelectContext(ctx, &res, query); err != nil {
		return nil, s.wrap("list tables", err)
	}
	return res, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// wrap classifies driver errors into store errors
func (s *Store) wrap(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	case s.isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrReference, err)
	case s.isDataException(err):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidValue, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}

func (s *Store) isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503" // foreign_key_violation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "FOREIGN KEY")
	}
	return false
}

// isDataException detects values rejected by the database itself, postgres class 22 or sqlite type mismatch
func (s *Store) isDataException(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "22" // data_exception
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_MISMATCH || liteErr.Code()&0xff == sqlite3.SQLITE_TOOBIG
	}
	return false
}
