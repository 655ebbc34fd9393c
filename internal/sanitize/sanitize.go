// Package sanitize strips markup from user-supplied free text before it is
// persisted.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes all HTML tags from s, keeping the text content. Idempotent
// and side-effect free.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(policy.Sanitize(s))
}
