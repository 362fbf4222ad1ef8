package fault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Stage is a step of fault handling. Each stage runs at most once per
// faulted request, in declaration order.
type Stage int

const (
	StageIdle Stage = iota
	StageCapturing
	StageRedacting
	StageLogging
	StageResponding
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCapturing:
		return "capturing"
	case StageRedacting:
		return "redacting"
	case StageLogging:
		return "logging"
	case StageResponding:
		return "responding"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// incident is the state of one faulted request.
type incident struct {
	id        string
	requestID string
	err       error
	stage     Stage

	method      string
	path        string
	contentType string
	body        string
	bodyErr     error
}

var errUnknown = errors.New("unknown error")

// TryHandle logs err together with the sanitised request and writes the
// problem response. It never panics and never returns err to the caller.
//
// It returns false only when the handler had already committed a response;
// the fault is logged but nothing more is written.
func (x *Reporter) TryHandle(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		err = errUnknown
	}
	inc := &incident{
		id:    uuid.NewString(),
		err:   err,
		stage: StageIdle,
	}
	ctx := context.WithoutCancel(r.Context())

	ok := x.process(ctx, inc, r)

	inc.stage = StageResponding
	if committed(w) {
		inc.stage = StageDone
		return false
	}
	if ok {
		x.respond(w, inc)
	} else {
		fallback(w)
	}
	inc.stage = StageDone
	return true
}

// process runs Capturing, Redacting and Logging. It reports false when one
// of them panicked.
func (x *Reporter) process(ctx context.Context, inc *incident, r *http.Request) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			x.selfFailure(ctx, inc, rec)
		}
	}()

	inc.stage = StageCapturing
	inc.requestID = x.requestID(r)
	inc.method = r.Method
	inc.path = r.URL.Path
	inc.contentType = r.Header.Get("Content-Type")
	c := x.capture(r)

	inc.stage = StageRedacting
	inc.body, inc.bodyErr = x.redact(c)

	inc.stage = StageLogging
	x.logger.LogError(ctx, inc.err, logMessage, inc.attrs()...)
	return true
}

func (x *incident) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(keyFaultID, x.id),
		slog.String(keyRequestID, x.requestID),
		slog.String(keyMethod, x.method),
		slog.String(keyPath, x.path),
		slog.String(keyContentType, x.contentType),
		slog.String(keyBody, x.body),
	}
	if x.bodyErr != nil {
		attrs = append(attrs, slog.String(keyBodyError, x.bodyErr.Error()))
	}
	return attrs
}

// selfFailure logs that the handler broke. The sink may be the thing that
// failed, so this is best effort.
func (x *Reporter) selfFailure(ctx context.Context, inc *incident, rec any) {
	defer func() {
		_ = recover()
	}()
	x.logger.LogError(ctx, fmt.Errorf("%v", rec), selfFailureMessage,
		slog.String(keyFaultID, inc.id),
		slog.String(keyStage, inc.stage.String()),
	)
}

func (x *Reporter) respond(w http.ResponseWriter, inc *incident) {
	defer func() {
		_ = recover()
	}()

	raw, err := json.Marshal(Problem{Status: http.StatusInternalServerError, Title: x.title})
	if err != nil {
		fallback(w)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if inc.requestID != "" {
		h.Set(RequestIDHeader, inc.requestID)
	}
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(raw)
}

func fallback(w http.ResponseWriter) {
	defer func() {
		_ = recover()
	}()
	http.Error(w, FallbackMessage, http.StatusInternalServerError)
}
