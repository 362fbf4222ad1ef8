package fault

import (
	"context"
	"log/slog"

	"github.com/darynku/ignorelogger"
	"github.com/rs/zerolog"
)

const (
	keyFaultID     = "fault_id"
	keyRequestID   = "request_id"
	keyMethod      = "method"
	keyPath        = "path"
	keyContentType = "content_type"
	keyBody        = "body"
	keyBodyError   = "body_error"
	keyStage       = "stage"
)

// contextKeys are the attributes the Reporter writes about the fault itself.
// Their string values bypass name rules; body is redacted before it gets
// here.
var contextKeys = map[string]struct{}{
	keyFaultID:     {},
	keyRequestID:   {},
	keyMethod:      {},
	keyPath:        {},
	keyContentType: {},
	keyBody:        {},
	keyBodyError:   {},
	keyStage:       {},
}

func isContextAttr(a slog.Attr) bool {
	_, ok := contextKeys[a.Key]
	return ok && a.Value.Kind() == slog.KindString
}

// Logger receives one record per fault. Every attribute except the string
// valued fault context passes through a Policy before it is written, so
// object values are redacted the same way as anywhere else in the process.
type Logger interface {
	LogError(ctx context.Context, err error, msg string, attrs ...slog.Attr)
}

// SlogLogger writes fault records to a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
	policy *ignorelogger.Policy
}

// NewSlogLogger wraps logger. A nil policy means the default one.
func NewSlogLogger(logger *slog.Logger, policy *ignorelogger.Policy) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = ignorelogger.NewPolicy()
	}
	return &SlogLogger{logger: logger, policy: policy}
}

func (x *SlogLogger) LogError(ctx context.Context, err error, msg string, attrs ...slog.Attr) {
	out := make([]slog.Attr, 0, len(attrs)+1)
	if err != nil {
		out = append(out, slog.String("error", err.Error()))
	}
	for _, a := range attrs {
		if isContextAttr(a) {
			out = append(out, a)
			continue
		}
		if ra := x.policy.Attr(a); ra.Key != "" {
			out = append(out, ra)
		}
	}
	x.logger.LogAttrs(ctx, slog.LevelError, msg, out...)
}

// ZerologLogger writes fault records to a zerolog.Logger.
type ZerologLogger struct {
	logger zerolog.Logger
	policy *ignorelogger.Policy
}

// NewZerologLogger wraps logger. A nil policy means the default one.
func NewZerologLogger(logger zerolog.Logger, policy *ignorelogger.Policy) *ZerologLogger {
	if policy == nil {
		policy = ignorelogger.NewPolicy()
	}
	return &ZerologLogger{logger: logger, policy: policy}
}

func (x *ZerologLogger) LogError(ctx context.Context, err error, msg string, attrs ...slog.Attr) {
	ev := x.logger.Error().Ctx(ctx)
	if err != nil {
		ev = ev.Err(err)
	}
	for _, a := range attrs {
		if isContextAttr(a) {
			ev = ev.Str(a.Key, a.Value.String())
			continue
		}
		ra := x.policy.Attr(a)
		if ra.Key == "" {
			continue
		}
		switch v := plain(ra.Value).(type) {
		case string:
			ev = ev.Str(ra.Key, v)
		default:
			ev = ev.Interface(ra.Key, v)
		}
	}
	ev.Msg(msg)
}

// plain turns a redacted slog.Value into a value zerolog can encode. Groups
// become Records so their order survives.
func plain(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() != slog.KindGroup {
		return v.Any()
	}
	attrs := v.Group()
	rec := make(ignorelogger.Record, 0, len(attrs))
	for _, a := range attrs {
		rec = append(rec, ignorelogger.Field{Name: a.Key, Value: plain(a.Value)})
	}
	return rec
}
