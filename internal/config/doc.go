// Package config handles configuration loading, parsing, and validation
// from a YAML file and TASKD_-prefixed environment variables. It provides
// type-safe access to the settings of the HTTP server, the task store, the
// scheduler, authentication and event publishing.
package config
