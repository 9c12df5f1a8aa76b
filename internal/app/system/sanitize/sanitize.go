// Package sanitize scrubs user-supplied text before it is stored.
//
// Chat message bodies and free-text descriptions come straight from
// clients and are re-rendered to other members; everything passes
// through bluemonday before insert.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips all markup, leaving plain text. Used for names, titles,
// and chat message bodies.
func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Rich keeps user-generated-content markup (basic formatting, links)
// and removes everything dangerous. Used for group and event
// descriptions.
func Rich(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}
