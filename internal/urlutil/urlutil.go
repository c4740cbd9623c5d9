// Package urlutil wraps the standard library's percent-decoding for the
// request-target and form-body splitting the core needs. Percent-
// decoding is a fixed byte-table transform; nothing in the retrieved
// pack reimplements it, so this stays on net/url rather than growing a
// bespoke decoder (see DESIGN.md, stdlib justifications).
package urlutil

import (
	"net/url"
	"strings"
)

// Decode percent-decodes s, treating '+' as a literal plus (this is used
// for path and raw-query segments, not form bodies — see DecodeForm).
// On malformed escapes it falls back to returning s unchanged rather
// than failing the request: a decode error is never treated as fatal.
func Decode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// DecodeForm percent-decodes a application/x-www-form-urlencoded
// component, where '+' stands for space.
func DecodeForm(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// SplitParams splits a raw query string or form body on '&', then each
// token on the first '=', decoding key and value. The bound on entries
// is the caller's: add is called for each decoded pair in order; it returns
// false once the caller's bound is reached, at which point SplitParams
// stops early (overflow pairs are simply not added, matching the
// bounded-array semantics of query_params/body_params).
func SplitParams(raw string, decode func(string) string, add func(key, value string) bool) {
	if raw == "" {
		return
	}
	for _, tok := range strings.Split(raw, "&") {
		if tok == "" {
			continue
		}
		key := tok
		value := ""
		if i := strings.IndexByte(tok, '='); i >= 0 {
			key, value = tok[:i], tok[i+1:]
		}
		if !add(decode(key), decode(value)) {
			return
		}
	}
}
