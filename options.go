package ignorelogger

import (
	"reflect"
	"strings"
)

// WithFieldName is an option to add field names that are always sensitive, in addition to the built-in deny-list. Names are compared case-insensitively using the policy's MatchMode.
func WithFieldName(names ...string) Option {
	return func(p *Policy) {
		for _, name := range names {
			if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
				p.names[n] = struct{}{}
			}
		}
	}
}

// WithType is an option to mark a whole type as sensitive. Any struct field, map entry or slice element holding a value of type T (or *T) is omitted.
func WithType[T any]() Option {
	return func(p *Policy) {
		p.sensitiveTypes[typeOf[T]()] = struct{}{}
	}
}

// WithTypeFields is an option to register sensitive fields of struct type T without touching its declaration. It has the same effect as tagging those fields with `log:"ignore"`.
func WithTypeFields[T any](fields ...string) Option {
	return func(p *Policy) {
		t := indirectType(typeOf[T]())
		set, ok := p.typeFields[t]
		if !ok {
			set = FieldSet{}
			p.typeFields[t] = set
		}
		for _, f := range fields {
			set.add(f)
		}
	}
}

// WithModel is an option to register a request model. The sensitive fields of T (and of the struct types it contains) are added to the key rules used for documents such as JSON request bodies, where no Go type is available.
func WithModel[T any]() Option {
	return func(p *Policy) {
		p.models = append(p.models, typeOf[T]())
	}
}

// WithTagKey is an option to change the struct tag key checked for the ignore marker. The default is `log`. If tagKey is empty, WithTagKey panics.
func WithTagKey(tagKey string) Option {
	if tagKey == "" {
		panic("ignorelogger: tag key must not be empty")
	}
	return func(p *Policy) {
		p.tagKey = tagKey
	}
}

// WithMatchMode is an option to choose between substring (default) and exact name matching.
func WithMatchMode(mode MatchMode) Option {
	return func(p *Policy) {
		p.mode = mode
	}
}

// WithAllowedType is an option to let values of the given types pass through without being walked.
func WithAllowedType(types ...reflect.Type) Option {
	return func(p *Policy) {
		for _, t := range types {
			p.allowedTypes[t] = struct{}{}
		}
	}
}

// WithoutDefaults is an option to disable DefaultSensitiveFields and DefaultExactFields. Only rules added by other options apply.
func WithoutDefaults() Option {
	return func(p *Policy) {
		p.useDefaults = false
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
