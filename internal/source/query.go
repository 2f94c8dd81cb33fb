package source

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

// applyQuery orders the children of a collection by q.OrderBy and keeps the
// last q.LimitToLast of them. Children missing the field order first, then
// booleans, numbers and strings; ties fall back to the child key.
func applyQuery(children map[string]any, q Query) map[string]any {
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a := orderValue(children[keys[i]], q.OrderBy)
		b := orderValue(children[keys[j]], q.OrderBy)
		if c := compareOrder(a, b); c != 0 {
			return c < 0
		}
		return keys[i] < keys[j]
	})

	if q.LimitToLast > 0 && len(keys) > q.LimitToLast {
		keys = keys[len(keys)-q.LimitToLast:]
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = deepCopy(children[k])
	}
	return out
}

type orderKey struct {
	rank int
	b    bool
	n    float64
	s    string
}

func orderValue(v any, field string) orderKey {
	m, ok := v.(map[string]any)
	if !ok {
		return orderKey{rank: 0}
	}
	switch t := m[field].(type) {
	case nil:
		return orderKey{rank: 0}
	case bool:
		return orderKey{rank: 1, b: t}
	case float64:
		return orderKey{rank: 2, n: t}
	case int:
		return orderKey{rank: 2, n: float64(t)}
	case int64:
		return orderKey{rank: 2, n: float64(t)}
	case json.Number:
		f, _ := t.Float64()
		return orderKey{rank: 2, n: f}
	case string:
		return orderKey{rank: 3, s: t}
	default:
		return orderKey{rank: 4}
	}
}

func compareOrder(a, b orderKey) int {
	if a.rank != b.rank {
		return a.rank - b.rank
	}
	switch a.rank {
	case 1:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case 2:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
	case 3:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		}
	}
	return 0
}

// deepCopy clones JSON-like values so snapshots never alias store memory.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return t
	}
}

func snapshotOf(v map[string]any) types.Snapshot {
	if v == nil {
		return types.Snapshot{}
	}
	return types.Snapshot{Exists: true, Value: deepCopy(v).(map[string]any)}
}

// collectionSnapshot reports an empty collection as absent.
func collectionSnapshot(children map[string]any) types.Snapshot {
	if len(children) == 0 {
		return types.Snapshot{}
	}
	return types.Snapshot{Exists: true, Value: children}
}

// entryKey names a collection child after its timestamp so keys sort in time order.
func entryKey(ms int64, seq int) string {
	return fmt.Sprintf("%013d-%03d", ms, seq)
}
