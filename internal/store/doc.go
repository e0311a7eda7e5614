// Package store defines shared persistence primitives: the DBTX abstraction
// over *sql.DB and *sql.Tx, transaction helpers, and the sentinel errors that
// every task store backend wraps so callers can test failures with errors.Is.
package store
