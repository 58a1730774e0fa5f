package docstore

import (
	"sort"
	"strings"
	"time"
)

// compare orders two Document values. ok is false when the values have
// different kinds and cannot be ordered.
func compare(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	case float64:
		y, isNum := b.(float64)
		if !isNum {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case string:
		y, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		if tx, err := time.Parse(time.RFC3339Nano, x); err == nil {
			if ty, err := time.Parse(time.RFC3339Nano, y); err == nil {
				return tx.Compare(ty), true
			}
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		c, ok := compare(doc[f.Field], normalize(f.Value))
		if !ok {
			return false
		}
		var pass bool
		switch f.Op {
		case OpEq:
			pass = c == 0
		case OpLt:
			pass = c < 0
		case OpLte:
			pass = c <= 0
		case OpGt:
			pass = c > 0
		case OpGte:
			pass = c >= 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// applyQuery evaluates q over an unindexed document set. Backends without
// server-side filtering (memory, redis) share it.
func applyQuery(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if matches(doc, q.Filters) {
			out = append(out, doc)
		}
	}

	// Ties and unorderable values fall back to id order so results are stable.
	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			c, ok := compare(out[i][q.OrderBy], out[j][q.OrderBy])
			if ok && c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		a, _ := out[i][FieldID].(string)
		b, _ := out[j][FieldID].(string)
		return a < b
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
