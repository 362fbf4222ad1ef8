package ignorelogger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"golang.org/x/exp/slices"
)

const (
	maxDepth = 32

	// CyclePlaceholder replaces a pointer, map or slice that refers back to
	// a value already being walked.
	CyclePlaceholder = "[CYCLE]"
	// MaxDepthPlaceholder replaces values nested deeper than the walker follows.
	MaxDepthPlaceholder = "[MAX DEPTH]"
	// FailedPlaceholder is returned when a value could not be walked at all.
	FailedPlaceholder = "[REDACTION FAILED]"
)

type visitKey struct {
	typ reflect.Type
	ptr uintptr
}

type walker struct {
	policy   *Policy
	visiting map[visitKey]struct{}
}

// Redact returns a representation of v that is safe to log. Scalars (strings,
// numbers, bools, time.Time, time.Duration, json.Number) are returned as is;
// structs and maps become a Record without their sensitive fields; slices and
// arrays become []any. Errors are reduced to their message and byte slices to
// their length.
//
// Redact never panics. A field whose value cannot be read is left out.
func (x *Policy) Redact(v any) (out any) {
	if v == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = FailedPlaceholder
		}
	}()

	w := &walker{
		policy:   x,
		visiting: map[visitKey]struct{}{},
	}
	return w.value(reflect.ValueOf(v), 0)
}

func (w *walker) value(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth >= maxDepth {
		return MaxDepthPlaceholder
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.value(v.Elem(), depth)
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}

	if !v.CanInterface() {
		return nil
	}
	src := v.Interface()

	if _, ok := w.policy.allowedTypes[v.Type()]; ok {
		return src
	}

	switch s := src.(type) {
	case Record:
		return s
	case time.Time, time.Duration, json.Number:
		return s
	case slog.Value:
		return w.slogValue(s, depth)
	case slog.LogValuer:
		return w.slogValue(s.LogValue(), depth)
	case error:
		return s.Error()
	case []byte:
		return fmt.Sprintf("[binary %d bytes]", len(s))
	}

	switch v.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return src

	case reflect.Pointer:
		if !w.enter(v) {
			return CyclePlaceholder
		}
		defer w.leave(v)
		return w.value(v.Elem(), depth+1)

	case reflect.Struct:
		rec := make(Record, 0, v.NumField())
		w.appendFields(&rec, addressable(v), depth)
		return rec

	case reflect.Map:
		if !w.enter(v) {
			return CyclePlaceholder
		}
		defer w.leave(v)
		return w.mapValue(v, depth)

	case reflect.Slice:
		if v.Len() > 0 {
			if !w.enter(v) {
				return CyclePlaceholder
			}
			defer w.leave(v)
		}
		return w.sequence(v, depth)

	case reflect.Array:
		return w.sequence(v, depth)

	default:
		// func, chan and unsafe.Pointer carry nothing worth logging
		return nil
	}
}

func (w *walker) appendFields(rec *Record, v reflect.Value, depth int) {
	t := v.Type()
	sensitive := w.policy.SensitiveFieldNames(t)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		embedded := f.Anonymous && isStructLike(f.Type)
		if (!f.IsExported() && !embedded) || skipKind(f.Type) {
			continue
		}
		if w.policy.fieldSensitive(f, sensitive) || w.policy.isSensitiveType(f.Type) {
			continue
		}

		fv := v.Field(i)
		if embedded {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			ev, ok := exposed(fv)
			if !ok {
				continue
			}
			if depth+1 < maxDepth {
				w.appendFields(rec, ev, depth+1)
			}
			continue
		}

		if w.policy.isSensitiveValue(fv) {
			continue
		}
		if val, ok := w.field(fv, depth); ok {
			*rec = append(*rec, Field{Name: f.Name, Value: val})
		}
	}
}

// field walks one field value. A panic while reading it, typically from a
// LogValue method, drops the field instead of the whole record.
func (w *walker) field(v reflect.Value, depth int) (val any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			val, ok = nil, false
		}
	}()
	return w.value(v, depth+1), true
}

type mapEntry struct {
	key     string
	keyType string
	value   reflect.Value
}

// mapValue emits entries sorted by their printed key. Distinct keys that
// print the same, such as 1 and "1" in a map[any]any, are all kept.
func (w *walker) mapValue(v reflect.Value, depth int) any {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface && !k.IsNil() {
			k = k.Elem()
		}
		entries = append(entries, mapEntry{key: mapKey(k), keyType: k.Type().String(), value: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b mapEntry) bool {
		if a.key != b.key {
			return a.key < b.key
		}
		return a.keyType < b.keyType
	})

	rec := make(Record, 0, len(entries))
	for _, e := range entries {
		if w.policy.IsSensitive(e.key, nil) || w.policy.isSensitiveValue(e.value) {
			continue
		}
		if val, ok := w.field(e.value, depth); ok {
			rec = append(rec, Field{Name: e.key, Value: val})
		}
	}
	return rec
}

func (w *walker) sequence(v reflect.Value, depth int) any {
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		ev := v.Index(i)
		if w.policy.isSensitiveValue(ev) {
			continue
		}
		if val, ok := w.field(ev, depth); ok {
			out = append(out, val)
		}
	}
	return out
}

func (w *walker) slogValue(sv slog.Value, depth int) any {
	switch sv.Kind() {
	case slog.KindGroup:
		attrs := sv.Group()
		rec := make(Record, 0, len(attrs))
		for _, a := range attrs {
			if w.policy.IsSensitive(a.Key, nil) {
				continue
			}
			if a.Value.Kind() == slog.KindAny && w.policy.isSensitiveValue(reflect.ValueOf(a.Value.Any())) {
				continue
			}
			rec = append(rec, Field{Name: a.Key, Value: w.slogValue(a.Value, depth+1)})
		}
		return rec
	case slog.KindLogValuer:
		if depth+1 >= maxDepth {
			return MaxDepthPlaceholder
		}
		return w.slogValue(sv.LogValuer().LogValue(), depth+1)
	case slog.KindAny:
		return w.value(reflect.ValueOf(sv.Any()), depth+1)
	default:
		return sv.Any()
	}
}

func (w *walker) enter(v reflect.Value) bool {
	key := visitKey{typ: v.Type(), ptr: v.Pointer()}
	if _, ok := w.visiting[key]; ok {
		return false
	}
	w.visiting[key] = struct{}{}
	return true
}

func (w *walker) leave(v reflect.Value) {
	delete(w.visiting, visitKey{typ: v.Type(), ptr: v.Pointer()})
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.String()
}

func skipKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func isStructLike(t reflect.Type) bool {
	return indirectType(t).Kind() == reflect.Struct
}
