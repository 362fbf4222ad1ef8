package document_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/darynku/ignorelogger"
	"github.com/darynku/ignorelogger/document"
	"github.com/m-mizutani/gt"
)

func TestRedactForm(t *testing.T) {
	r := document.New(ignorelogger.NewPolicy())

	out, err := r.RedactForm(&document.Form{
		Values: map[string][]string{
			"name":     {"a"},
			"password": {"b"},
		},
		Files: map[string][]document.FileInfo{
			"upload": {{FieldName: "upload", FileName: "cat.png", Size: 1024, ContentType: "image/png"}},
		},
	})
	gt.NoError(t, err)
	gt.V(t, out).Equal(`{"name":"a","upload":{"filePresent":true,"fileName":"cat.png","size":1024,"contentType":"image/png"}}`)
}

func TestRedactFormMultipleFiles(t *testing.T) {
	r := document.New(ignorelogger.NewPolicy())

	out, err := r.RedactForm(&document.Form{
		Values: map[string][]string{
			"tags":        {"x", "y"},
			"description": {"two files"},
		},
		Files: map[string][]document.FileInfo{
			"Files": {
				{FieldName: "Files", FileName: "a.txt", Size: 1, ContentType: "text/plain"},
				{FieldName: "Files", FileName: "b.txt", Size: 2, ContentType: "text/plain"},
			},
		},
	})
	gt.NoError(t, err)
	gt.V(t, out).Equal(`{"description":"two files","tags":"x,y","Files":[` +
		`{"filePresent":true,"fileName":"a.txt","size":1,"contentType":"text/plain"},` +
		`{"filePresent":true,"fileName":"b.txt","size":2,"contentType":"text/plain"}]}`)
}

func TestRedactFormNil(t *testing.T) {
	r := document.New(ignorelogger.NewPolicy())

	out, err := r.RedactForm(nil)
	gt.NoError(t, err)
	gt.V(t, out).Equal(document.SentinelNoBody)

	out, err = r.RedactForm(&document.Form{})
	gt.NoError(t, err)
	gt.V(t, out).Equal(`{}`)
}

func TestFormFromValues(t *testing.T) {
	r := document.New(ignorelogger.NewPolicy())

	out, err := r.RedactForm(document.FormFromValues(url.Values{
		"login":        {"bob"},
		"access_token": {"t"},
	}))
	gt.NoError(t, err)
	gt.V(t, out).Equal(`{"login":"bob"}`)
}

func TestFormFromMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	gt.NoError(t, mw.WriteField("name", "a"))
	gt.NoError(t, mw.WriteField("password", "b"))
	fw, err := mw.CreateFormFile("upload", "secret.bin")
	gt.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{0xff}, 1024))
	gt.NoError(t, err)
	gt.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	gt.NoError(t, req.ParseMultipartForm(1<<20))

	form := document.FormFromMultipart(req.MultipartForm)
	gt.V(t, form.Files["upload"][0].Size).Equal(int64(1024))
	gt.V(t, form.Files["upload"][0].FieldName).Equal("upload")

	out, err := document.New(ignorelogger.NewPolicy()).RedactForm(form)
	gt.NoError(t, err)
	gt.S(t, out).Contains(`"name":"a"`)
	gt.S(t, out).NotContains("password")
	gt.S(t, out).Contains(`"upload":{"filePresent":true,"fileName":"secret.bin","size":1024,"contentType":"application/octet-stream"}`)

	t.Run("nil form", func(t *testing.T) {
		gt.V(t, document.FormFromMultipart(nil)).Nil()
	})
}
