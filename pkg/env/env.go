// Package env reads one-off environment overrides that live outside the
// envconfig-managed ANTITEXT_ tree, such as the platform-injected PORT.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
