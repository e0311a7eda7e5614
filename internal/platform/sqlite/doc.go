// Package sqlite implements task.TaskStore on SQLite using the pure Go
// modernc.org/sqlite driver, so single-node deployments need no cgo and no
// external database. Schema migrations are embedded and run through goose.
package sqlite
