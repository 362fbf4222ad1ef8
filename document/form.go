package document

import (
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/darynku/ignorelogger"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FileInfo describes an uploaded file without its content.
type FileInfo struct {
	FieldName   string
	FileName    string
	Size        int64
	ContentType string
}

// Form is a decoded form body: plain fields and uploaded file descriptors.
type Form struct {
	Values map[string][]string
	Files  map[string][]FileInfo
}

// FormFromValues wraps url-encoded form values.
func FormFromValues(values url.Values) *Form {
	return &Form{Values: values}
}

// FormFromMultipart converts a parsed multipart form. Only file headers are
// read; the file parts themselves are never opened.
func FormFromMultipart(mf *multipart.Form) *Form {
	if mf == nil {
		return nil
	}
	form := &Form{
		Values: mf.Value,
		Files:  make(map[string][]FileInfo, len(mf.File)),
	}
	for field, headers := range mf.File {
		for _, h := range headers {
			form.Files[field] = append(form.Files[field], FileInfo{
				FieldName:   field,
				FileName:    h.Filename,
				Size:        h.Size,
				ContentType: h.Header.Get("Content-Type"),
			})
		}
	}
	return form
}

// RedactForm renders form as a JSON object. Plain fields come first in key
// order, skipping sensitive names and joining repeated values with ",". Each
// file field follows with metadata only; files are listed whatever their
// field is called, and their content is never read.
func (x *Redactor) RedactForm(form *Form) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = SentinelRedactionFailed, fmt.Errorf("%w: %v", ErrRedactionFailed, r)
		}
	}()

	if form == nil {
		return SentinelNoBody, nil
	}

	rec := ignorelogger.Record{}

	keys := maps.Keys(form.Values)
	slices.Sort(keys)
	for _, k := range keys {
		if _, isFile := form.Files[k]; isFile {
			continue
		}
		if x.policy.IsSensitiveKey(k) {
			continue
		}
		rec = append(rec, ignorelogger.Field{Name: k, Value: strings.Join(form.Values[k], ",")})
	}

	fileKeys := maps.Keys(form.Files)
	slices.Sort(fileKeys)
	for _, k := range fileKeys {
		files := form.Files[k]
		switch len(files) {
		case 0:
			continue
		case 1:
			rec = append(rec, ignorelogger.Field{Name: k, Value: fileRecord(files[0])})
		default:
			list := make([]any, 0, len(files))
			for _, f := range files {
				list = append(list, fileRecord(f))
			}
			rec = append(rec, ignorelogger.Field{Name: k, Value: list})
		}
	}

	return rec.String(), nil
}

func fileRecord(f FileInfo) ignorelogger.Record {
	return ignorelogger.Record{
		{Name: "filePresent", Value: true},
		{Name: "fileName", Value: f.FileName},
		{Name: "size", Value: f.Size},
		{Name: "contentType", Value: f.ContentType},
	}
}
