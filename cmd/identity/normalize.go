package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
// For now trim + lower-case only; unicode-confusable rules can be added
// later behind a versioned policy.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
