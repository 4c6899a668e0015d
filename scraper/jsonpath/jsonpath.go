// Package jsonpath resolves dotted, optionally indexed paths like
// "data.jobs[0].title" against decoded JSON values.
package jsonpath

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

var indexedSegment = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)

// Get resolves path against root. Resolution fails soft: a missing key, an
// out-of-range index or a type mismatch anywhere along the path yields None,
// never an error. An empty path is always None.
func Get(root any, path string) mo.Option[any] {
	if strings.TrimSpace(path) == "" {
		return mo.None[any]()
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		if current == nil {
			return mo.None[any]()
		}

		key := segment
		index := -1
		if m := indexedSegment.FindStringSubmatch(segment); m != nil {
			key = m[1]
			// Regex guarantees digits only.
			index, _ = strconv.Atoi(m[2])
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return mo.None[any]()
		}
		current, ok = obj[key]
		if !ok {
			return mo.None[any]()
		}

		if index >= 0 {
			arr, ok := current.([]any)
			if !ok || index >= len(arr) {
				return mo.None[any]()
			}
			current = arr[index]
		}
	}

	if current == nil {
		return mo.None[any]()
	}
	return mo.Some(current)
}

// GetString resolves path and coerces the result to a string. Numbers are
// rendered without a decimal point when integral, matching how job ids are
// commonly delivered as JSON numbers.
func GetString(root any, path string) (string, bool) {
	value, ok := Get(root, path).Get()
	if !ok {
		return "", false
	}
	return Stringify(value), true
}

// Stringify renders a scalar JSON value for ledger comparisons.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return ""
	}
}
