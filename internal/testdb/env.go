package testdb

import (
	"net/url"
	"os"
)

// Environment variables consulted for the test database URL, in priority order.
const (
	EnvTestDBURL   = "TASKD_TEST_DB_URL"
	EnvDatabaseURL = "DATABASE_URL"
)

// DatabaseURL returns the first configured test database URL, or "".
func DatabaseURL() string {
	for _, name := range []string{EnvTestDBURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return DatabaseURL() != ""
}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// MaskDatabaseURL hides the password in a database URL for logging.
func MaskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	return u.Redacted()
}
