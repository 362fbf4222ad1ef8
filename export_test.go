package ignorelogger

import "reflect"

// MaxDepth is exported for testing
const MaxDepth = maxDepth

// CachedFieldSet returns the cached tagged-field set of t for tagKey, if any.
func CachedFieldSet(tagKey string, t reflect.Type) (FieldSet, bool) {
	v, ok := taggedFieldCache.Load(cacheKey{tagKey: tagKey, typ: t})
	if !ok {
		return nil, false
	}
	return v.(FieldSet), true
}
