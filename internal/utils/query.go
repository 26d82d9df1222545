package utils

import (
	"net/url"
	"strconv"
)

// QueryInt parses a non-negative integer query parameter, falling back to
// def when the value is missing, malformed, or negative.
func QueryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
