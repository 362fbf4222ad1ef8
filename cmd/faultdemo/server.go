package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/darynku/ignorelogger/document"
	"github.com/darynku/ignorelogger/fault"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxUploadMemory = 32 << 20

func newRouter(logger *slog.Logger, rep *fault.Reporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(rep.Middleware)

	r.Method(http.MethodPost, "/test-attribute", rep.Handle(decodeThenFail[TestDto](logger, "attribute test failure")))
	r.Method(http.MethodPost, "/test-default", rep.Handle(decodeThenFail[UserCredentials](logger, "default rules test failure")))
	r.Method(http.MethodPost, "/test-complex", rep.Handle(decodeThenFail[UserProfile](logger, "nested object test failure")))
	r.Method(http.MethodPost, "/test", rep.Handle(decodeThenFail[RealResponse](logger, "field removal test failure")))
	r.Method(http.MethodPost, "/test-mixed", rep.Handle(decodeThenFail[MixedDataTest](logger, "mixed value test failure")))
	r.Method(http.MethodPost, "/test-single", rep.Handle(decodeThenFail[SingleFieldTest](logger, "single field test failure")))

	r.Post("/upload-file", uploadFile(logger))
	r.Post("/upload-multiple", uploadMultiple(logger))

	return r
}

// requestID prefers the ID assigned by chi's RequestID middleware.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(fault.RequestIDHeader)
}

func decodeThenFail[T any](logger *slog.Logger, reason string) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var dto T
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			return fmt.Errorf("decode %T: %w", dto, err)
		}
		logger.InfoContext(r.Context(), "request decoded", slog.Any("dto", dto))
		return errors.New(reason)
	}
}

func uploadFile(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			panic(fmt.Errorf("parse upload: %w", err))
		}
		form := document.FormFromMultipart(r.MultipartForm)

		model := FileUploadModel{
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			SecretData:  r.FormValue("secretData"),
		}
		model.IsPublic, _ = strconv.ParseBool(r.FormValue("isPublic"))
		if files := form.Files["file"]; len(files) > 0 {
			model.File = &files[0]
		}
		logger.InfoContext(r.Context(), "upload received", slog.Any("model", model))

		if model.File == nil {
			panic("no file was provided")
		}
		panic(fmt.Sprintf("upload failed, file size: %d bytes", model.File.Size))
	}
}

func uploadMultiple(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			panic(fmt.Errorf("parse upload: %w", err))
		}
		form := document.FormFromMultipart(r.MultipartForm)

		model := MultipleFilesModel{
			BatchName: r.FormValue("batchName"),
			Files:     form.Files["files"],
			Category:  r.FormValue("category"),
		}
		logger.InfoContext(r.Context(), "upload received", slog.Any("model", model))

		if len(model.Files) == 0 {
			panic("no files were provided")
		}
		var total int64
		for _, f := range model.Files {
			total += f.Size
		}
		panic(fmt.Sprintf("upload failed, total size: %d bytes", total))
	}
}
