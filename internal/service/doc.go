// Package service contains the application-specific use cases and business
// logic. It orchestrates the task store, the worker registry and the event
// emitter to fulfill operations requested by delivery mechanisms such as the
// admin API and the CLI.
//
// Error handling principles:
//  1. Service methods return sentinel errors for expected error conditions
//  2. Unexpected errors are wrapped in TaskServiceError
//  3. Callers use errors.Is/errors.As to check for specific error conditions
//  4. The API layer maps service errors to appropriate HTTP status codes
package service
