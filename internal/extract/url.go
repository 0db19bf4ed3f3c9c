// Package extract pulls structured values out of free-form model output.
package extract

import "regexp"

// urlPattern matches http(s) URLs with an optional www. prefix, a dotted host
// and an optional path, query and fragment.
var urlPattern = regexp.MustCompile(`https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`)

// URL returns the first URL found in text. Models asked to answer with only a
// URL often wrap it in prose, so this is a best-effort search, not a validator.
func URL(text string) (string, bool) {
	m := urlPattern.FindString(text)
	return m, m != ""
}
