// Package postgres implements task.TaskStore on PostgreSQL through the pgx
// database/sql driver. It owns the embedded goose migrations for its schema
// and maps pgconn error codes onto the sentinels in internal/store.
package postgres
