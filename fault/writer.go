package fault

import "net/http"

// trackingWriter records whether anything has been sent to the client.
type trackingWriter struct {
	http.ResponseWriter
	committed bool
}

func track(w http.ResponseWriter) *trackingWriter {
	if tw, ok := w.(*trackingWriter); ok {
		return tw
	}
	return &trackingWriter{ResponseWriter: w}
}

func (x *trackingWriter) WriteHeader(code int) {
	x.committed = true
	x.ResponseWriter.WriteHeader(code)
}

func (x *trackingWriter) Write(p []byte) (int, error) {
	x.committed = true
	return x.ResponseWriter.Write(p)
}

func (x *trackingWriter) Flush() {
	x.committed = true
	if f, ok := x.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Committed reports whether the status line has been written.
func (x *trackingWriter) Committed() bool {
	return x.committed
}

func (x *trackingWriter) Unwrap() http.ResponseWriter {
	return x.ResponseWriter
}

// committed reports whether w already carries a response. Writers that do
// not expose the state are assumed uncommitted.
func committed(w http.ResponseWriter) bool {
	switch v := w.(type) {
	case interface{ Committed() bool }:
		return v.Committed()
	case interface{ Status() int }:
		return v.Status() != 0
	}
	return false
}
