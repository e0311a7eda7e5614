// Package api exposes the task scheduler's admin HTTP surface: creating,
// listing, inspecting and deleting tasks, and listing registered workers.
// Handlers translate HTTP concerns into TaskService calls and map domain
// errors to sanitized responses.
package api
