package ignorelogger

import (
	"reflect"
	"unsafe"
)

// exposed returns a readable view of v. Values reached through an unexported
// embedded field carry reflect's read-only flag even when the promoted field
// itself is exported; an addressable v is re-read through its address to
// clear it.
func exposed(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return v, false
	}
	if v.CanInterface() {
		return v, true
	}
	if !v.CanAddr() {
		return reflect.Value{}, false
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem(), true
}

// addressable returns v itself when it has an address and an addressable
// copy otherwise, so that exposed can reach into its embedded fields.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !hasHiddenEmbed(v.Type()) {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

// hasHiddenEmbed reports whether t, or a struct it embeds by value, embeds a
// struct through an unexported field.
func hasHiddenEmbed(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous || !isStructLike(f.Type) {
			continue
		}
		if !f.IsExported() {
			return true
		}
		if f.Type.Kind() == reflect.Struct && hasHiddenEmbed(f.Type) {
			return true
		}
	}
	return false
}
