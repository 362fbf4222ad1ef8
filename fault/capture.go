package fault

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/darynku/ignorelogger/document"
)

var (
	ErrBodyUnseekable = errors.New("request body does not support seeking")
	ErrBodyTooLarge   = errors.New("request body exceeds capture limit")
)

// bufferedBody is a fully read request body that can be rewound.
type bufferedBody struct {
	*bytes.Reader
}

func (bufferedBody) Close() error { return nil }

// uncapturedBody passes a body through untouched and records why it was
// not buffered.
type uncapturedBody struct {
	io.Reader
	io.Closer
	sentinel string
	err      error
}

// Middleware buffers the request body into a seekable buffer, tracks
// whether the response has been committed and turns any panic of next into
// a call to TryHandle. http.ErrAbortHandler is re-raised.
func (x *Reporter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		x.buffer(r)
		rw := track(w)

		defer func() {
			if rec := recover(); rec != nil {
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				x.TryHandle(rw, r, panicError(rec))
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

// Handle adapts an error returning handler. A non-nil error, or a panic, is
// handed to TryHandle.
func (x *Reporter) Handle(fn func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return x.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			x.TryHandle(w, r, err)
		}
	}))
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}

func (x *Reporter) buffer(r *http.Request) {
	if r.Body == nil || r.Body == http.NoBody {
		return
	}
	switch r.Body.(type) {
	case bufferedBody, *uncapturedBody:
		return
	}

	orig := r.Body
	buf, err := io.ReadAll(io.LimitReader(orig, x.maxBodyBytes+1))
	switch {
	case err != nil:
		r.Body = &uncapturedBody{
			Reader:   io.MultiReader(bytes.NewReader(buf), &errReader{err: err}),
			Closer:   orig,
			sentinel: document.SentinelReadError,
			err:      err,
		}
	case int64(len(buf)) > x.maxBodyBytes:
		r.Body = &uncapturedBody{
			Reader:   io.MultiReader(bytes.NewReader(buf), orig),
			Closer:   orig,
			sentinel: document.SentinelTooLarge,
			err:      ErrBodyTooLarge,
		}
	default:
		_ = orig.Close()
		r.Body = bufferedBody{Reader: bytes.NewReader(buf)}
	}
}

type errReader struct {
	err error
}

func (x *errReader) Read([]byte) (int, error) { return 0, x.err }

// captured is the outcome of the Capturing stage: exactly one of body, form
// or sentinel is meaningful.
type captured struct {
	contentType string
	body        []byte
	form        *document.Form
	sentinel    string
	err         error
}

func (x *Reporter) capture(r *http.Request) captured {
	c := captured{contentType: r.Header.Get("Content-Type")}

	if document.Classify(c.contentType) == document.KindForm {
		form, err := x.forms.DecodeForm(r, x.maxFormMemory)
		if err != nil {
			c.sentinel, c.err = document.SentinelFormError, err
			if u, ok := r.Body.(*uncapturedBody); ok {
				c.sentinel, c.err = u.sentinel, u.err
			} else if errors.Is(err, ErrBodyUnseekable) {
				c.sentinel = document.SentinelUnseekable
			}
			return c
		}
		c.form = form
		return c
	}

	if u, ok := r.Body.(*uncapturedBody); ok {
		c.sentinel, c.err = u.sentinel, u.err
		return c
	}

	body, err := readBody(r)
	switch {
	case errors.Is(err, ErrBodyUnseekable):
		c.sentinel, c.err = document.SentinelUnseekable, err
	case err != nil:
		c.sentinel, c.err = document.SentinelReadError, err
	default:
		c.body = body
	}
	return c
}

// readBody returns the whole request body and leaves it rewound to the start
// so later readers see it unchanged.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if rs, ok := r.Body.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
		body, err := io.ReadAll(rs)
		if _, serr := rs.Seek(0, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("restore body: %w", serr)
		}
		return body, err
	}

	if r.GetBody != nil {
		rc, err := r.GetBody()
		if err != nil {
			return nil, fmt.Errorf("get body: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return nil, ErrBodyUnseekable
}

func (x *Reporter) redact(c captured) (string, error) {
	switch {
	case c.sentinel != "":
		return c.sentinel, c.err
	case c.form != nil:
		return x.docs.RedactForm(c.form)
	default:
		return x.docs.Redact(c.body, c.contentType)
	}
}
