package database

import (
	"database/sql"
	"fmt"
)

// Tx is a transaction whose statements are rewritten for the connection's dialect
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(t.dialect.RewriteQuery(query), args...)
}

func (t *Tx) ExecReturningID(query string, args ...interface{}) (int64, error) {
	return execReturningID(t.tx, t.dialect, query, args...)
}

// WithTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
func (db *DB) WithTx(fn func(*Tx) error) error {
	sqlTx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Tx{tx: sqlTx, dialect: db.Dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return sqlTx.Commit()
}
