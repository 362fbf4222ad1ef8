package ignorelogger

import (
	"reflect"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// defaultSensitiveFields are field names suppressed regardless of tags. The
// list is matched case-insensitively and, in MatchContains mode, as
// substrings, so "userPassword" and "uploadedFile" are caught as well.
var defaultSensitiveFields = []string{
	// credentials
	"password", "passwd", "pwd", "passcode", "passphrase",
	"secret", "token", "credential",
	"apikey", "api_key", "api-key",
	"accesstoken", "access_token",
	"refreshtoken", "refresh_token",
	"privatekey", "private_key",
	"pincode", "pin_code",
	"authorization", "cookie",
	// binary payloads
	"file", "attachment", "upload", "document", "binary", "stream",
}

// defaultExactFields are built-in names that are sensitive only as a whole
// field name, in every match mode. "pin" must not catch "shipping".
var defaultExactFields = []string{"pin", "pass", "key"}

// DefaultSensitiveFields returns a copy of the built-in deny-list matched
// with the policy's MatchMode.
func DefaultSensitiveFields() []string {
	return slices.Clone(defaultSensitiveFields)
}

// DefaultExactFields returns a copy of the built-in names that only match a
// whole field name.
func DefaultExactFields() []string {
	return slices.Clone(defaultExactFields)
}

// FieldSet is a set of lower-cased field names.
type FieldSet map[string]struct{}

func (x FieldSet) add(name string) {
	if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
		x[n] = struct{}{}
	}
}

// Has reports whether name (compared case-insensitively) is in the set.
func (x FieldSet) Has(name string) bool {
	_, ok := x[strings.ToLower(name)]
	return ok
}

// Names returns the sorted members of the set.
func (x FieldSet) Names() []string {
	names := maps.Keys(x)
	slices.Sort(names)
	return names
}

type cacheKey struct {
	tagKey string
	typ    reflect.Type
}

// taggedFieldCache maps cacheKey to the FieldSet of tagged fields. Entries are
// computed on first use and never invalidated; two goroutines racing on the
// same type compute identical sets, so LoadOrStore keeps whichever lands first.
var taggedFieldCache sync.Map

// IsSensitive reports whether fieldName matches a rule of the policy or an
// entry of typeSet, the sensitive names of the type that declares the field.
func (x *Policy) IsSensitive(fieldName string, typeSet FieldSet) bool {
	name := strings.ToLower(strings.TrimSpace(fieldName))
	if name == "" {
		return false
	}

	if x.exact.Has(name) {
		return true
	}
	for rule := range typeSet {
		if x.match(name, rule) {
			return true
		}
	}
	for _, rule := range x.rules {
		if x.match(name, rule) {
			return true
		}
	}
	return false
}

// IsSensitiveKey reports whether a document key (a JSON object key or a form
// field name) must be removed. It applies the policy rules plus the sensitive
// fields of every model registered with WithModel.
func (x *Policy) IsSensitiveKey(key string) bool {
	return x.IsSensitive(key, x.modelFields)
}

// SensitiveFieldNames returns the lower-cased names of the exported fields of
// t that carry the ignore tag or were registered with WithTypeFields. Both the
// Go field name and its json name are included. Pointer types are
// dereferenced; non-struct types have no sensitive fields.
func (x *Policy) SensitiveFieldNames(t reflect.Type) FieldSet {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	tagged := taggedFields(x.tagKey, t)
	extra, ok := x.typeFields[t]
	if !ok {
		return tagged
	}

	merged := make(FieldSet, len(tagged)+len(extra))
	for name := range tagged {
		merged[name] = struct{}{}
	}
	for name := range extra {
		merged[name] = struct{}{}
	}
	return merged
}

// Rules returns the sorted name rules matched with the policy's MatchMode,
// excluding per-type sets and ExactRules.
func (x *Policy) Rules() []string {
	return slices.Clone(x.rules)
}

// ExactRules returns the sorted rules that only match a whole name,
// whatever the MatchMode.
func (x *Policy) ExactRules() []string {
	return x.exact.Names()
}

// MatchMode returns the matching mode of the policy.
func (x *Policy) MatchMode() MatchMode {
	return x.mode
}

// KeyRules returns the sorted rules applied by IsSensitiveKey.
func (x *Policy) KeyRules() []string {
	set := make(FieldSet, len(x.rules)+len(x.modelFields))
	for _, r := range x.rules {
		set[r] = struct{}{}
	}
	for r := range x.modelFields {
		set[r] = struct{}{}
	}
	return set.Names()
}

func (x *Policy) match(name, rule string) bool {
	if x.mode == MatchExact {
		return name == rule
	}
	return strings.Contains(name, rule)
}

func (x *Policy) fieldSensitive(f reflect.StructField, typeSet FieldSet) bool {
	if x.IsSensitive(f.Name, typeSet) {
		return true
	}
	if name := jsonName(f); name != "" && name != f.Name {
		return x.IsSensitive(name, typeSet)
	}
	return false
}

func (x *Policy) isSensitiveType(t reflect.Type) bool {
	if len(x.sensitiveTypes) == 0 || t == nil {
		return false
	}
	if _, ok := x.sensitiveTypes[t]; ok {
		return true
	}
	if t.Kind() == reflect.Pointer {
		_, ok := x.sensitiveTypes[t.Elem()]
		return ok
	}
	return false
}

// isSensitiveValue checks the dynamic type of v, looking through interfaces.
func (x *Policy) isSensitiveValue(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return x.isSensitiveType(v.Type())
}

func (x *Policy) buildRules() []string {
	set := FieldSet{}
	if x.useDefaults {
		for _, name := range defaultSensitiveFields {
			set.add(name)
		}
	}
	for name := range x.names {
		set.add(name)
	}
	return set.Names()
}

func (x *Policy) buildExactRules() FieldSet {
	set := FieldSet{}
	if x.useDefaults {
		for _, name := range defaultExactFields {
			set.add(name)
		}
	}
	return set
}

func (x *Policy) buildModelFields() FieldSet {
	fields := FieldSet{}
	seen := map[reflect.Type]struct{}{}

	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		t = indirectType(t)
		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			walk(t.Elem())
			return
		case reflect.Struct:
		default:
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}

		for name := range x.SensitiveFieldNames(t) {
			fields[name] = struct{}{}
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if x.isSensitiveType(f.Type) {
				fields.add(f.Name)
				fields.add(jsonName(f))
				continue
			}
			walk(f.Type)
		}
	}

	for _, m := range x.models {
		walk(m)
	}
	return fields
}

func taggedFields(tagKey string, t reflect.Type) FieldSet {
	key := cacheKey{tagKey: tagKey, typ: t}
	if v, ok := taggedFieldCache.Load(key); ok {
		return v.(FieldSet)
	}

	set := FieldSet{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || !hasIgnoreTag(f.Tag.Get(tagKey)) {
			continue
		}
		set.add(f.Name)
		set.add(jsonName(f))
	}

	actual, _ := taggedFieldCache.LoadOrStore(key, set)
	return actual.(FieldSet)
}

func hasIgnoreTag(tag string) bool {
	for _, v := range strings.Split(tag, ",") {
		switch strings.TrimSpace(v) {
		case TagValueIgnore, "-":
			return true
		}
	}
	return false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
