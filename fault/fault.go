// Package fault is the terminal error boundary of an HTTP service. A Reporter
// captures the failed request, sanitises its body with a document.Redactor,
// emits one structured log record and answers with a fixed problem response.
// Nothing that goes wrong inside the Reporter reaches the caller.
package fault

import (
	"net/http"

	"github.com/darynku/ignorelogger/document"
	"github.com/google/uuid"
)

const (
	DefaultTitle         = "Server error"
	DefaultMaxBodyBytes  = 1 << 20
	DefaultMaxFormMemory = 32 << 20

	// FallbackMessage is the plain text answer used when the Reporter
	// itself fails before it can write the problem response.
	FallbackMessage = "Server error occurred"

	// RequestIDHeader carries the request ID in and out.
	RequestIDHeader = "X-Request-Id"

	logMessage         = "Exception occurred"
	selfFailureMessage = "fault handler itself failed"
)

// Reporter converts unhandled request failures into a log record and a
// generic 500 response. It is safe for concurrent use.
type Reporter struct {
	logger        Logger
	docs          *document.Redactor
	title         string
	maxBodyBytes  int64
	maxFormMemory int64
	forms         FormDecoder
	requestID     func(r *http.Request) string
}

// Option configures a Reporter.
type Option func(x *Reporter)

// WithTitle sets the title of the problem response.
func WithTitle(title string) Option {
	return func(x *Reporter) {
		if title != "" {
			x.title = title
		}
	}
}

// WithMaxBodyBytes limits how much of a request body Middleware buffers.
// Larger bodies are streamed through to the handler and not captured.
func WithMaxBodyBytes(n int64) Option {
	return func(x *Reporter) {
		if n > 0 {
			x.maxBodyBytes = n
		}
	}
}

// WithMaxFormMemory sets the memory limit passed to the form decoder.
func WithMaxFormMemory(n int64) Option {
	return func(x *Reporter) {
		if n > 0 {
			x.maxFormMemory = n
		}
	}
}

// WithFormDecoder replaces the decoder used for form and multipart bodies.
func WithFormDecoder(d FormDecoder) Option {
	return func(x *Reporter) {
		if d != nil {
			x.forms = d
		}
	}
}

// WithRequestID sets how the request ID echoed in the response is obtained.
func WithRequestID(f func(r *http.Request) string) Option {
	return func(x *Reporter) {
		if f != nil {
			x.requestID = f
		}
	}
}

// New returns a Reporter writing to logger. A nil docs uses a Redactor with
// the default policy and a nil logger writes to slog.Default.
func New(logger Logger, docs *document.Redactor, options ...Option) *Reporter {
	if docs == nil {
		docs = document.New(nil)
	}
	if logger == nil {
		logger = NewSlogLogger(nil, docs.Policy())
	}
	x := &Reporter{
		logger:        logger,
		docs:          docs,
		title:         DefaultTitle,
		maxBodyBytes:  DefaultMaxBodyBytes,
		maxFormMemory: DefaultMaxFormMemory,
		forms:         &MultipartDecoder{},
		requestID:     headerRequestID,
	}
	for _, opt := range options {
		opt(x)
	}
	return x
}

func headerRequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// Problem is the body of the fault response.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
}
