package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/store"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = store.ErrNotFound

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// The helpers below read loosely typed document fields. Older records may
// carry numbers where strings are expected, or omit fields entirely.

func str(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolean(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func integer(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func parseTime(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case string:
		if typed == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, typed); err == nil {
				return t, true
			}
		}
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(typed)).UTC(), true
	}
	return time.Time{}, false
}

func timestamp(fields map[string]any, key string) time.Time {
	t, _ := parseTime(fields[key])
	return t
}

func optionalTime(fields map[string]any, key string) *time.Time {
	t, ok := parseTime(fields[key])
	if !ok {
		return nil
	}
	return &t
}

func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
