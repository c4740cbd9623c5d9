package httpcore

import "strings"

// MaxHeaders is the bounded header-array capacity: headers past this
// cap are discarded but still consumed by the parser, except
// Content-Length and Connection which are always honored.
const MaxHeaders = 32

// MaxParams bounds query_params and body_params, independently of
// MaxHeaders.
const MaxParams = 32

// HeaderField is one owned (name, value) pair.
type HeaderField struct {
	Name  string
	Value string
}

// headerList is the fixed-capacity, owned-string header array embedded
// in Request.
type headerList struct {
	fields [MaxHeaders]HeaderField
	count  int
}

func (h *headerList) reset() {
	for i := 0; i < h.count; i++ {
		h.fields[i] = HeaderField{}
	}
	h.count = 0
}

// add stores (name, value) if below capacity; returns false on overflow
// headers, which are discarded but still consumed by the parser.
func (h *headerList) add(name, value string) bool {
	if h.count >= MaxHeaders {
		return false
	}
	h.fields[h.count] = HeaderField{Name: name, Value: value}
	h.count++
	return true
}

// Get performs a case-insensitive lookup, returning the last stored value
// for name (headers are not deduplicated on store).
func (h *headerList) Get(name string) (string, bool) {
	for i := h.count - 1; i >= 0; i-- {
		if strings.EqualFold(h.fields[i].Name, name) {
			return h.fields[i].Value, true
		}
	}
	return "", false
}
