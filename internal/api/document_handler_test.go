package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"nexus-ats/internal/model"
	"nexus-ats/internal/service"
)

// multipartUpload builds an upload request. An empty contentType leaves the
// part header out.
func multipartUpload(t *testing.T, path, filename, contentType string, data []byte, documentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	if documentType != "" {
		mw.WriteField("documentType", documentType)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(UserIDHeader, "recruiter-1")
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestDocumentUploadAndDownload(t *testing.T) {
	env := defaultEnv(t)
	c := env.createCandidate(t, "Jane", "jane@example.com")
	base := "/api/candidates/" + c.ID.Hex() + "/documents"
	content := []byte("Jane Doe\nGo developer\n")

	rec := env.serve(multipartUpload(t, base, "resume.txt", "text/plain; charset=utf-8", content, "Resume"))
	body := decodeEnvelope(t, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var doc model.Document
	if err := json.Unmarshal(body.Data, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.MimeType != model.MimeText || doc.Size != int64(len(content)) || doc.DocumentType != model.DocumentResume {
		t.Errorf("document = %+v", doc)
	}
	if doc.UploadedBy != "recruiter-1" || !strings.HasPrefix(doc.Filename, c.ID.Hex()+"_") {
		t.Errorf("document = %+v", doc)
	}
	if strings.Contains(rec.Body.String(), "filePath") {
		t.Error("storage path leaked to the client")
	}

	rec, listBody := env.do(t, http.MethodGet, base, nil)
	var docs []model.Document
	_ = json.Unmarshal(listBody.Data, &docs)
	if rec.Code != http.StatusOK || len(docs) != 1 {
		t.Fatalf("list = %d %+v", rec.Code, docs)
	}

	rec, _ = env.do(t, http.MethodGet, base+"/"+doc.ID.Hex(), nil)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("download = %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "resume.txt") {
		t.Errorf("content disposition = %q", got)
	}

	rec, statsBody := env.do(t, http.MethodGet, base+"/stats", nil)
	var stats service.DocumentStats
	_ = json.Unmarshal(statsBody.Data, &stats)
	if rec.Code != http.StatusOK || stats.Count != 1 || stats.ByType["Resume"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec, _ = env.do(t, http.MethodDelete, base+"/"+doc.ID.Hex(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec, errBody := env.do(t, http.MethodGet, base+"/"+doc.ID.Hex(), nil)
	expectError(t, rec, errBody, http.StatusNotFound, "DOCUMENT_NOT_FOUND")
}

func TestDocumentUpload_SniffsMissingContentType(t *testing.T) {
	env := defaultEnv(t)
	c := env.createCandidate(t, "Jane", "jane@example.com")
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	rec := env.serve(multipartUpload(t, "/api/candidates/"+c.ID.Hex()+"/documents", "cv.pdf", "", pdf, ""))
	body := decodeEnvelope(t, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var doc model.Document
	_ = json.Unmarshal(body.Data, &doc)
	if doc.MimeType != model.MimePDF || doc.DocumentType != model.DocumentOther {
		t.Errorf("document = %+v", doc)
	}
}

func TestDocumentUpload_Rejections(t *testing.T) {
	env := newTestEnv(t,
		Options{MaxUploadSize: 16},
		service.DocumentConfig{MaxFileSize: 16, AllowedMimeTypes: []string{model.MimePDF}},
		MiddlewareConfig{},
	)
	c := env.createCandidate(t, "Jane", "jane@example.com")
	path := "/api/candidates/" + c.ID.Hex() + "/documents"

	rec := env.serve(multipartUpload(t, path, "big.pdf", model.MimePDF, bytes.Repeat([]byte("a"), 64), ""))
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")

	rec = env.serve(multipartUpload(t, path, "notes.txt", model.MimeText, []byte("hello"), ""))
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE")

	rec = env.serve(multipartUpload(t, path, "anim.gif", "image/gif", []byte("GIF89a"), ""))
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusBadRequest, apperrValidation)

	rec = env.serve(multipartUpload(t, path, "cv.pdf", model.MimePDF, []byte("%PDF-1.4"), "Selfie"))
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusBadRequest, apperrValidation)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec = env.serve(req)
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusBadRequest, "UPLOAD_ERROR")

	rec = env.serve(multipartUpload(t, "/api/candidates/"+"0123456789abcdef01234567"+"/documents", "cv.pdf", model.MimePDF, []byte("%PDF-1.4"), ""))
	expectError(t, rec, decodeEnvelope(t, rec), http.StatusNotFound, "CANDIDATE_NOT_FOUND")
}
