package criteria

import (
	"fmt"
	"sort"
)

// Condition is an equality match keyed by declared field names.
type Condition map[string]any

// ByOptions tunes the GetBy family of repository lookups.
type ByOptions struct {
	// InitThrow turns an empty result into ErrNotFound.
	InitThrow bool
}

// Keys returns the condition's field names in lexical order so generated SQL
// is stable.
func (c Condition) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Check rejects any field not declared in def.
func (c Condition) Check(def Definition) error {
	for _, k := range c.Keys() {
		if !def.Declares(k) {
			return fmt.Errorf("%w: %s", ErrUndeclaredField, k)
		}
	}
	return nil
}
