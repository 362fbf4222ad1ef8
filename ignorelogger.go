// Package ignorelogger removes sensitive fields from values before they reach
// a log sink. Fields are suppressed by name (a built-in deny-list plus
// application rules), by struct tag (`log:"ignore"`) or by type, and are
// omitted entirely rather than masked.
//
// The package plugs into log/slog as a ReplaceAttr hook:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//		ReplaceAttr: ignorelogger.New(),
//	}))
package ignorelogger

import (
	"io"
	"log/slog"
	"reflect"
)

const (
	// DefaultTagKey is the struct tag key checked for the ignore marker.
	DefaultTagKey = "log"
	// TagValueIgnore marks a field as sensitive: `log:"ignore"`.
	TagValueIgnore = "ignore"
)

// MatchMode selects how a field name is compared against a rule.
type MatchMode int

const (
	// MatchContains treats a field as sensitive when its lower-cased name
	// contains a rule as a substring. "filename" matches "file".
	MatchContains MatchMode = iota
	// MatchExact treats a field as sensitive only when its lower-cased name
	// equals a rule.
	MatchExact
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	default:
		return "contains"
	}
}

// Policy decides which fields are sensitive and produces redacted copies of
// values. A Policy is immutable after NewPolicy returns and safe for
// concurrent use.
type Policy struct {
	tagKey      string
	mode        MatchMode
	useDefaults bool

	names          map[string]struct{}
	typeFields     map[reflect.Type]FieldSet
	sensitiveTypes map[reflect.Type]struct{}
	allowedTypes   map[reflect.Type]struct{}
	models         []reflect.Type

	rules       []string
	exact       FieldSet
	modelFields FieldSet
}

// Option configures a Policy.
type Option func(p *Policy)

// NewPolicy builds a Policy. Without options it suppresses the names
// returned by DefaultSensitiveFields and DefaultExactFields and every
// exported field tagged `log:"ignore"`.
func NewPolicy(options ...Option) *Policy {
	p := &Policy{
		tagKey:         DefaultTagKey,
		mode:           MatchContains,
		useDefaults:    true,
		names:          map[string]struct{}{},
		typeFields:     map[reflect.Type]FieldSet{},
		sensitiveTypes: map[reflect.Type]struct{}{},
		allowedTypes:   map[reflect.Type]struct{}{},
	}

	for _, opt := range options {
		opt(p)
	}

	p.rules = p.buildRules()
	p.exact = p.buildExactRules()
	p.modelFields = p.buildModelFields()
	return p
}

// New returns a function for slog.HandlerOptions.ReplaceAttr that redacts
// every attribute with a Policy built from options.
func New(options ...Option) func(groups []string, a slog.Attr) slog.Attr {
	return NewPolicy(options...).ReplaceAttr
}

// NewLogger returns a JSON slog.Logger writing to w with the policy installed
// as its ReplaceAttr hook.
func NewLogger(w io.Writer, options ...Option) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: New(options...),
	}))
}

// ReplaceAttr implements the slog.HandlerOptions.ReplaceAttr contract. The
// handler's own top-level keys (time, level, msg, source) are left alone.
func (x *Policy) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey, slog.SourceKey:
			return a
		}
	}
	return x.Attr(a)
}

// Attr returns a redacted copy of a. If the key itself is sensitive the
// returned Attr is empty, which slog handlers discard.
func (x *Policy) Attr(a slog.Attr) slog.Attr {
	if x.IsSensitive(a.Key, nil) {
		return slog.Attr{}
	}

	switch a.Value.Kind() {
	case slog.KindAny:
		v := a.Value.Any()
		if x.isSensitiveValue(reflect.ValueOf(v)) {
			return slog.Attr{}
		}
		return slog.Any(a.Key, x.Redact(v))

	case slog.KindLogValuer:
		return slog.Any(a.Key, x.Redact(a.Value.LogValuer()))

	case slog.KindGroup:
		var attrs []slog.Attr
		for _, ga := range a.Value.Group() {
			if ra := x.Attr(ga); ra.Key != "" {
				attrs = append(attrs, ra)
			}
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(attrs...)}

	default:
		return a
	}
}
