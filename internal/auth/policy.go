package auth

import "slices"

// Authorize reports whether role is one of allowed. An empty allowed set
// denies everything.
func Authorize(role string, allowed ...string) bool {
	return role != "" && slices.Contains(allowed, role)
}
