// Package dotpath reads and writes values inside decoded JSON documents
// addressed by dot-separated paths such as "choices.0.message.content".
//
// A segment made only of ASCII digits addresses an array element; every
// other segment is an object key. Documents are the shapes produced by
// encoding/json: map[string]any, []any and scalar leaves.
package dotpath

import (
	"strconv"
	"strings"
)

// Split breaks a path into its segments.
func Split(path string) []string {
	return strings.Split(path, ".")
}

// index reports whether seg is an array index and its value.
// Digit strings too large for int resolve to -1 so they never match.
func index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return -1, true
	}
	return n, true
}

// Get resolves path against root.
// The second result is false when a key is missing, an index is out of
// range, a numeric segment meets an object, or traversal reaches a leaf
// before the path ends. An explicit null that is present resolves to (nil, true).
func Get(root any, path string) (any, bool) {
	cur := root
	for _, seg := range Split(path) {
		if i, ok := index(seg); ok {
			arr, isArr := cur.([]any)
			if !isArr || i < 0 || i >= len(arr) {
				return nil, false
			}
			cur = arr[i]
			continue
		}
		obj, isObj := cur.(map[string]any)
		if !isObj {
			return nil, false
		}
		v, found := obj[seg]
		if !found {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Set writes value at path inside root and reports whether a write happened.
//
// Missing intermediate keys get fresh objects, as do keys holding a
// non-object value. Arrays are never created: a numeric segment only
// descends into an existing element, and a terminal numeric segment is a no-op.
// When Set returns false, root is left exactly as it was.
func Set(root map[string]any, path string, value any) bool {
	if root == nil {
		return false
	}
	segs := Split(path)
	if !writable(root, segs) {
		return false
	}

	var cur any = root
	for n, seg := range segs {
		if i, ok := index(seg); ok {
			cur = cur.([]any)[i]
			continue
		}
		obj := cur.(map[string]any)
		if n == len(segs)-1 {
			obj[seg] = value
			return true
		}
		if descends(obj[seg], segs[n+1]) {
			cur = obj[seg]
			continue
		}
		next := make(map[string]any)
		obj[seg] = next
		cur = next
	}
	return false
}

// descends reports whether Set walks into v for the following segment
// rather than replacing it with a fresh object.
func descends(v any, nextSeg string) bool {
	switch v.(type) {
	case map[string]any:
		return true
	case []any:
		_, isIndex := index(nextSeg)
		return isIndex
	}
	return false
}

// writable walks segs without touching root and reports whether Set can
// complete. Once a fresh object would be created, any later numeric
// segment fails because the new object holds no arrays.
func writable(root map[string]any, segs []string) bool {
	var cur any = root
	fresh := false
	for n, seg := range segs {
		last := n == len(segs)-1
		if i, ok := index(seg); ok {
			if last || fresh {
				return false
			}
			arr, isArr := cur.([]any)
			if !isArr || i < 0 || i >= len(arr) {
				return false
			}
			cur = arr[i]
			continue
		}
		if last {
			if fresh {
				return true
			}
			_, isObj := cur.(map[string]any)
			return isObj
		}
		if fresh {
			continue
		}
		obj, isObj := cur.(map[string]any)
		if !isObj {
			return false
		}
		if descends(obj[seg], segs[n+1]) {
			cur = obj[seg]
			continue
		}
		fresh = true
	}
	return false
}

// Clone returns a deep copy of a decoded JSON value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Walk calls fn for every string leaf in v and stores its result in place.
// Object keys are left untouched.
func Walk(v any, fn func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = Walk(e, fn)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = Walk(e, fn)
		}
		return t
	case string:
		return fn(t)
	default:
		return v
	}
}

// AnyString reports whether any string leaf in v satisfies pred.
func AnyString(v any, pred func(string) bool) bool {
	switch t := v.(type) {
	case map[string]any:
		for _, e := range t {
			if AnyString(e, pred) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if AnyString(e, pred) {
				return true
			}
		}
	case string:
		return pred(t)
	}
	return false
}
