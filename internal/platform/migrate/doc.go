// Package migrate runs goose schema migrations embedded in the store
// backends. Goose is configured through package globals, so Run serializes
// callers and restores the base filesystem when it returns.
package migrate
