// Package main implements taskd, a polling task scheduler with an admin
// HTTP API and maintenance commands for its task store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
