// Package document sanitises request bodies captured from the wire. JSON is
// rebuilt without sensitive keys, decoded forms are reduced to their safe
// fields and file metadata, and everything else is either captured as bounded
// text or replaced by a sentinel.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/darynku/ignorelogger"
)

const (
	SentinelNoBody          = "[No body]"
	SentinelFormNotRead     = "[form-data content - not read for security reasons]"
	SentinelUnseekable      = "[Request body can't be read - stream doesn't support seeking]"
	SentinelReadError       = "[Error reading request body]"
	SentinelFormError       = "[Error processing form data]"
	SentinelTooLarge        = "[Request body too large to capture]"
	SentinelBinary          = "[Binary body omitted]"
	SentinelNotCaptured     = "[Body not captured]"
	SentinelRedactionFailed = "[Redaction failed]"
)

var (
	// ErrFormNotDecoded is returned when a form body is handed over as raw
	// bytes. Forms must be redacted from their decoded representation.
	ErrFormNotDecoded = errors.New("form body must be decoded before redaction")
	// ErrMalformedJSON means the body was not valid JSON and only the
	// best-effort pattern strip was applied.
	ErrMalformedJSON = errors.New("malformed JSON body")
	// ErrRedactionFailed means redaction itself broke and a sentinel was
	// returned in place of the body.
	ErrRedactionFailed = errors.New("redaction failed")
)

const defaultMaxTextBytes = 64 * 1024

// Redactor sanitises documents with the rules of a Policy. It is safe for
// concurrent use.
type Redactor struct {
	policy       *ignorelogger.Policy
	maxTextBytes int
	captureText  bool
	patterns     []stripPattern
}

// Option configures a Redactor.
type Option func(r *Redactor)

// WithMaxTextBytes limits how much of an opaque text body is kept. Zero or a
// negative value restores the default.
func WithMaxTextBytes(n int) Option {
	return func(r *Redactor) {
		if n <= 0 {
			n = defaultMaxTextBytes
		}
		r.maxTextBytes = n
	}
}

// WithTextCapture enables or disables capturing bodies that are neither JSON
// nor forms.
func WithTextCapture(enabled bool) Option {
	return func(r *Redactor) {
		r.captureText = enabled
	}
}

// New returns a Redactor for policy. A nil policy means the default one.
func New(policy *ignorelogger.Policy, options ...Option) *Redactor {
	if policy == nil {
		policy = ignorelogger.NewPolicy()
	}
	r := &Redactor{
		policy:       policy,
		maxTextBytes: defaultMaxTextBytes,
		captureText:  true,
	}
	for _, opt := range options {
		opt(r)
	}
	r.patterns = buildStripPatterns(policy)
	return r
}

// Policy returns the policy the redactor applies.
func (x *Redactor) Policy() *ignorelogger.Policy {
	return x.policy
}

// Redact sanitises body according to contentType. The returned text is
// always safe to log; a non-nil error describes how it was degraded.
func (x *Redactor) Redact(body []byte, contentType string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = SentinelRedactionFailed, fmt.Errorf("%w: %v", ErrRedactionFailed, r)
		}
	}()

	if len(bytes.TrimSpace(body)) == 0 {
		return SentinelNoBody, nil
	}

	switch kind := Classify(contentType); kind {
	case KindJSON:
		return x.RedactJSON(body)
	case KindForm:
		return SentinelFormNotRead, ErrFormNotDecoded
	case KindBinary:
		return SentinelBinary, nil
	default:
		if kind == KindUnknown && looksLikeJSON(body) {
			return x.RedactJSON(body)
		}
		return x.text(body), nil
	}
}

// Kind is the broad class of a body, derived from its content type.
type Kind int

const (
	KindUnknown Kind = iota
	KindJSON
	KindForm
	KindBinary
	KindText
)

// Classify maps a Content-Type header value to a Kind. Parameters such as
// charset and boundary are ignored.
func Classify(contentType string) Kind {
	mt := mediaType(contentType)
	switch {
	case mt == "":
		return KindUnknown
	case mt == "application/json", mt == "text/json", strings.HasSuffix(mt, "+json"):
		return KindJSON
	case mt == "multipart/form-data", mt == "application/x-www-form-urlencoded":
		return KindForm
	case mt == "application/octet-stream", mt == "application/pdf", mt == "application/zip",
		strings.HasPrefix(mt, "image/"), strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
		return KindBinary
	case strings.HasPrefix(mt, "text/"), mt == "application/xml", strings.HasSuffix(mt, "+xml"):
		return KindText
	default:
		return KindUnknown
	}
}

func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func (x *Redactor) text(body []byte) string {
	if !x.captureText {
		return SentinelNotCaptured
	}
	if !utf8.Valid(body) {
		return SentinelBinary
	}
	if len(body) <= x.maxTextBytes {
		return string(body)
	}

	cut := x.maxTextBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...[truncated %d bytes]", body[:cut], len(body)-cut)
}

func looksLikeJSON(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && (b[0] == '{' || b[0] == '[')
}
