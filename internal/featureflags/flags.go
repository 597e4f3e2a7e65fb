package featureflags

import (
	"os"
	"strings"
)

// Flags consulted by the account directory.
const (
	// LegacySHA256Login lets accounts migrated from the old platform log in
	// with their original salted SHA-256 password hashes.
	LegacySHA256Login = "LEGACY_SHA256_LOGIN"
	// RequireApproval blocks login for unapproved teacher and student
	// accounts until a director approves them.
	RequireApproval = "REQUIRE_APPROVAL"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
