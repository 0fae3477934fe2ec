package messaging

// RefBinding declares where a full embedded object lives inside an event
// payload and which fields identify it. Path segments name map keys; the
// literal segment "*" applies the remaining path to every element of a list.
type RefBinding struct {
	ObjectType  string
	Path        []string
	PrimaryKeys []string
}

// NormalizeRefs rewrites, in place, every full object found at a binding's
// path into a reference stub holding only the primary-key fields, and
// returns the displaced full objects as {object_type, object_ref, object}
// entries. Bindings are applied independently, left to right.
//
// Values that are not maps, maps missing a primary key, and maps that are
// already reference-shaped are left untouched, which makes the rewrite
// idempotent. Missing intermediate values end the walk for that branch;
// normalization is best-effort per path and never fails.
func NormalizeRefs(payload map[string]any, bindings []RefBinding) []map[string]any {
	var updated []map[string]any
	for _, b := range bindings {
		applyBinding(payload, b, 0, &updated)
	}
	return updated
}

func applyBinding(current any, b RefBinding, depth int, updated *[]map[string]any) {
	if current == nil || depth >= len(b.Path) {
		return
	}
	segment := b.Path[depth]
	if segment == "*" {
		list, ok := current.([]any)
		if !ok {
			return
		}
		for _, item := range list {
			applyBinding(item, b, depth+1, updated)
		}
		return
	}
	node, ok := current.(map[string]any)
	if !ok {
		return
	}
	next := node[segment]
	if next == nil {
		return
	}
	if depth == len(b.Path)-1 {
		node[segment] = normalizeRefValue(next, b, updated)
		return
	}
	applyBinding(next, b, depth+1, updated)
}

func normalizeRefValue(value any, b RefBinding, updated *[]map[string]any) any {
	candidate, ok := value.(map[string]any)
	if !ok {
		return value
	}
	if !hasAllPrimaryKeys(candidate, b.PrimaryKeys) {
		return value
	}
	if isRefShape(candidate, b.PrimaryKeys) {
		return candidate
	}
	stub := make(map[string]any, len(b.PrimaryKeys))
	for _, key := range b.PrimaryKeys {
		stub[key] = candidate[key]
	}
	*updated = append(*updated, map[string]any{
		"object_type": b.ObjectType,
		"object_ref":  stub,
		"object":      candidate,
	})
	return stub
}

func hasAllPrimaryKeys(candidate map[string]any, primaryKeys []string) bool {
	for _, key := range primaryKeys {
		if v, ok := candidate[key]; !ok || v == nil {
			return false
		}
	}
	return true
}

// isRefShape reports whether the map's key set is exactly the primary-key
// set, i.e. the value is already a stub produced by a previous pass.
func isRefShape(candidate map[string]any, primaryKeys []string) bool {
	for key := range candidate {
		found := false
		for _, pk := range primaryKeys {
			if key == pk {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
