package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"time"
)

// Dialect hides the differences between the SQL engines that can back the
// local store (sessions, the donation ledger and repair history).
type Dialect interface {
	DriverName() string
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders where the driver wants another syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId is false when inserts need a RETURNING clause
	SupportsLastInsertId() bool

	ConfigureConnection(db *sql.DB, config DialectConfig) error
	MigrationsSubdir() string
	CreateMigrationsTableQuery() string

	// IsUniqueViolation reports whether err is the driver's duplicate key
	// error, e.g. a second ledger row for one Zeffy transaction.
	IsUniqueViolation(err error) bool
}

// DefaultMaxOpenConns sizes the pool when DB_MAX_OPEN_CONNS is unset
const DefaultMaxOpenConns = 10

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// SQLite file path
	Path string

	// PostgreSQL/MySQL connection URL
	URL string

	MaxOpenConns int
}

func (c DialectConfig) maxOpenConns() int {
	if c.MaxOpenConns > 0 {
		return c.MaxOpenConns
	}
	return DefaultMaxOpenConns
}

// configurePool applies the shared pool limits. The store sees short bursts
// (webhook retries, login spikes) so idle connections are kept few.
func configurePool(db *sql.DB, config DialectConfig) {
	open := config.maxOpenConns()
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(max(1, open/4))
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
