// Package task implements deferred and recurring work for the agent runtime.
//
// Tasks are persisted records dispatched by name to registered workers. A
// Scheduler polls the TaskStore on a fixed delay for tasks tagged "queue" and
// hands the due ones to an Executor, which runs the worker and reconciles the
// store: one-shot tasks are deleted after running, recurring tasks (tagged
// "repeat") have metadata.updatedAt stamped before each run so that a slow or
// crashing worker cannot trigger an immediate re-dispatch.
package task
