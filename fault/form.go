package fault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/darynku/ignorelogger/document"
)

// FormDecoder supplies the decoded fields and file descriptors of a form
// request. Implementations must leave r readable for later consumers.
type FormDecoder interface {
	DecodeForm(r *http.Request, maxMemory int64) (*document.Form, error)
}

// FormDecoderFunc adapts a function to FormDecoder.
type FormDecoderFunc func(r *http.Request, maxMemory int64) (*document.Form, error)

func (f FormDecoderFunc) DecodeForm(r *http.Request, maxMemory int64) (*document.Form, error) {
	return f(r, maxMemory)
}

// MultipartDecoder is the default FormDecoder. It reuses a form the handler
// already parsed; otherwise it parses a copy of the buffered body, so the
// request itself is not modified. PostForm is only trusted for url-encoded
// bodies.
type MultipartDecoder struct{}

func (MultipartDecoder) DecodeForm(r *http.Request, maxMemory int64) (*document.Form, error) {
	multipart := isMultipart(r)
	if r.MultipartForm != nil {
		return document.FormFromMultipart(r.MultipartForm), nil
	}
	// ParseForm leaves an empty PostForm on multipart requests.
	if r.PostForm != nil && !multipart {
		return document.FormFromValues(r.PostForm), nil
	}

	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	clone := r.Clone(context.WithoutCancel(r.Context()))
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.Form, clone.PostForm, clone.MultipartForm = nil, nil, nil

	if multipart {
		if err := clone.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		defer func() {
			_ = clone.MultipartForm.RemoveAll()
		}()
		return document.FormFromMultipart(clone.MultipartForm), nil
	}

	if err := clone.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	return document.FormFromValues(clone.PostForm), nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
