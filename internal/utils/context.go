package utils

import "context"

// GetString reads a string value from the context. Missing keys and
// non-string values both report false.
func GetString(ctx context.Context, key any) (string, bool) {
	s, ok := ctx.Value(key).(string)
	return s, ok
}
