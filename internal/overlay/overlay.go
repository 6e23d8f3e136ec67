package overlay

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
)

// Object is one merged view over an ordered set of JSON fragments.
type Object map[string]any

// Merge combines fragments in order into a single object. A key present in a
// later fragment overrides the same key from an earlier one; keys absent from
// later fragments keep their earliest value. A malformed fragment aborts the
// whole merge with a parse error; callers validate fragments before merging.
func Merge(fragments []string) (Object, error) {
	merged := Object{}
	for i, fragment := range fragments {
		var table map[string]any
		if err := json.Unmarshal([]byte(fragment), &table); err != nil {
			return nil, adpnerr.Wrap(adpnerr.ErrParse, "overlay", "merge", fmt.Sprintf("fragment %d", i+1), err)
		}
		for key, value := range table {
			merged[key] = value
		}
	}
	return merged, nil
}

// Get projects the value at a dot-separated key path out of the object.
// Intermediate path segments must be objects. The second return reports
// whether the path was present.
func (o Object) Get(path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = map[string]any(o)
	for _, segment := range segments {
		table, ok := current.(map[string]any)
		if !ok {
			if typed, isObject := current.(Object); isObject {
				table = map[string]any(typed)
			} else {
				return nil, false
			}
		}
		next, present := table[segment]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

// GetString projects a dot-path key as its scalar string form. Non-string
// values are rendered as compact JSON, matching how values travel through
// line-oriented pipes.
func (o Object) GetString(path string) (string, bool) {
	value, ok := o.Get(path)
	if !ok {
		return "", false
	}
	return Scalar(value), true
}

// Keys returns the object's top-level keys in sorted order for deterministic
// serialization.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Scalar renders a merged value as a plain string. Strings pass through
// unquoted; everything else serializes as compact JSON.
func Scalar(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
