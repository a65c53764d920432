package service

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/blob"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
	"nexus-ats/internal/storage/memstore"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Supports(mimeType string) bool { return mimeType == model.MimePDF }

func (f fakeExtractor) Extract([]byte, string) (string, error) { return f.text, f.err }

func newDocumentService(t *testing.T, repo storage.CandidateRepository, cfg DocumentConfig, ex TextExtractor) (*DocumentService, *blob.FileStore) {
	t.Helper()
	store, err := blob.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	s := NewDocumentService(repo, store, ex, cfg, zerolog.Nop())
	s.now = fixedClock
	return s, store
}

func pdfUpload(size int) FileUpload {
	return FileUpload{
		OriginalName: "resume.pdf",
		MimeType:     model.MimePDF,
		Size:         int64(size),
		Data:         bytes.Repeat([]byte{'%'}, size),
	}
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

// A resume is uploaded, listed, soft-deleted and kept in the raw record.
func TestDocumentService_UploadListDelete(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, store := newDocumentService(t, repo, DocumentConfig{}, nil)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, c.ID.Hex(), pdfUpload(2048), "Resume", "recruiter-1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Size != 2048 || doc.DocumentType != model.DocumentResume || !doc.IsActive || doc.UploadedBy != "recruiter-1" {
		t.Errorf("doc = %+v", doc)
	}
	if !strings.HasPrefix(doc.Filename, c.ID.Hex()+"_") || !strings.HasSuffix(doc.Filename, ".pdf") {
		t.Errorf("filename = %q", doc.Filename)
	}
	if doc.FilePath != "candidates/"+c.ID.Hex()+"/"+doc.Filename {
		t.Errorf("file path = %q", doc.FilePath)
	}

	docs, err := svc.List(ctx, c.ID.Hex())
	if err != nil || len(docs) != 1 {
		t.Fatalf("List = %v, %v", docs, err)
	}

	content, err := svc.Get(ctx, c.ID.Hex(), doc.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(content.Data) != 2048 || content.Document.OriginalName != "resume.pdf" {
		t.Errorf("content = %d bytes, %+v", len(content.Data), content.Document)
	}

	if err := svc.Delete(ctx, c.ID.Hex(), doc.ID.Hex(), "admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	docs, err = svc.List(ctx, c.ID.Hex())
	if err != nil || len(docs) != 0 {
		t.Fatalf("List after delete = %v, %v", docs, err)
	}
	_, err = svc.Get(ctx, c.ID.Hex(), doc.ID.Hex())
	wantCode(t, err, apperr.CodeDocumentNotFound, http.StatusNotFound)

	raw, _ := repo.Raw(c.ID)
	if len(raw.Documents) != 1 || raw.Documents[0].IsActive || raw.Documents[0].DeletedBy != "admin" {
		t.Errorf("raw documents = %+v", raw.Documents)
	}
	if countFiles(t, store.Root()) != 1 {
		t.Error("soft delete must keep the stored bytes")
	}
}

func TestDocumentService_UploadRejections(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, store := newDocumentService(t, repo, DocumentConfig{
		MaxFileSize:      1024,
		AllowedMimeTypes: []string{model.MimePDF, model.MimeDOCX},
	}, nil)
	ctx := context.Background()

	mismatch := pdfUpload(10)
	mismatch.Size = 11
	png := pdfUpload(10)
	png.MimeType = model.MimePNG
	zip := pdfUpload(10)
	zip.MimeType = "application/zip"
	unnamed := pdfUpload(10)
	unnamed.OriginalName = "  "

	tests := []struct {
		name    string
		id      string
		file    FileUpload
		docType string
		code    string
		status  int
	}{
		{"bad id", "123", pdfUpload(10), "Resume", apperr.CodeInvalidID, http.StatusBadRequest},
		{"too large", c.ID.Hex(), pdfUpload(2048), "Resume", apperr.CodeValidation, http.StatusBadRequest},
		{"size mismatch", c.ID.Hex(), mismatch, "Resume", apperr.CodeValidation, http.StatusBadRequest},
		{"unknown mime", c.ID.Hex(), zip, "Resume", apperr.CodeValidation, http.StatusBadRequest},
		{"not configured", c.ID.Hex(), png, "Resume", apperr.CodeUnsupportedFileType, http.StatusUnsupportedMediaType},
		{"bad document type", c.ID.Hex(), pdfUpload(10), "Photo", apperr.CodeValidation, http.StatusBadRequest},
		{"no name", c.ID.Hex(), unnamed, "Resume", apperr.CodeValidation, http.StatusBadRequest},
		{"missing candidate", primitive.NewObjectID().Hex(), pdfUpload(10), "Resume", apperr.CodeCandidateNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tt.id, tt.file, tt.docType, "u")
			wantCode(t, err, tt.code, tt.status)
		})
	}
	if n := countFiles(t, store.Root()); n != 0 {
		t.Errorf("rejected uploads left %d files", n)
	}
}

func TestDocumentService_DefaultDocumentType(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, _ := newDocumentService(t, repo, DocumentConfig{}, nil)

	doc, err := svc.Upload(context.Background(), c.ID.Hex(), pdfUpload(8), "", "u")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.DocumentType != model.DocumentOther {
		t.Errorf("type = %s", doc.DocumentType)
	}
}

func TestDocumentService_KeepsOriginalNameAsGiven(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, _ := newDocumentService(t, repo, DocumentConfig{}, nil)

	file := pdfUpload(8)
	file.OriginalName = "  My CV (final).pdf "
	doc, err := svc.Upload(context.Background(), c.ID.Hex(), file, "Resume", "u")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.OriginalName != file.OriginalName {
		t.Errorf("originalName = %q, want %q", doc.OriginalName, file.OriginalName)
	}
	raw, _ := repo.Raw(c.ID)
	if raw.Documents[0].OriginalName != file.OriginalName {
		t.Errorf("stored originalName = %q", raw.Documents[0].OriginalName)
	}
	if !strings.HasSuffix(doc.Filename, ".pdf") {
		t.Errorf("filename = %q", doc.Filename)
	}
}

func TestDocumentService_DeleteWithPaddedCandidateID(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, _ := newDocumentService(t, repo, DocumentConfig{}, nil)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, c.ID.Hex(), pdfUpload(8), "Resume", "u")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := svc.Delete(ctx, " "+c.ID.Hex()+" ", doc.ID.Hex(), "admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	raw, _ := repo.Raw(c.ID)
	if raw.Documents[0].IsActive || raw.Documents[0].DeletedBy != "admin" {
		t.Errorf("document = %+v", raw.Documents[0])
	}
}

// failingPush accepts reads but refuses to record documents.
type failingPush struct {
	*memstore.Store
}

func (failingPush) PushDocument(context.Context, primitive.ObjectID, model.Document, time.Time) (*model.Candidate, error) {
	return nil, errors.New("write concern timeout")
}

func TestDocumentService_CompensatesFailedAppend(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, store := newDocumentService(t, failingPush{repo}, DocumentConfig{}, nil)

	compensated := metrics.DocumentUploads.WithLabelValues(metrics.ResultCompensated)
	before := testutil.ToFloat64(compensated)

	_, err := svc.Upload(context.Background(), c.ID.Hex(), pdfUpload(64), "Resume", "u")
	wantCode(t, err, apperr.CodeUploadError, http.StatusInternalServerError)

	if n := countFiles(t, store.Root()); n != 0 {
		t.Errorf("orphaned files after failed append: %d", n)
	}
	if got := testutil.ToFloat64(compensated) - before; got != 1 {
		t.Errorf("compensated counter delta = %v", got)
	}
}

func TestDocumentService_UploadsNeverCollide(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, store := newDocumentService(t, repo, DocumentConfig{}, nil)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		doc, err := svc.Upload(context.Background(), c.ID.Hex(), pdfUpload(16), "Resume", "u")
		if err != nil {
			t.Fatalf("Upload %d: %v", i, err)
		}
		if seen[doc.Filename] {
			t.Fatalf("filename reused: %s", doc.Filename)
		}
		seen[doc.Filename] = true
	}
	if n := countFiles(t, store.Root()); n != 5 {
		t.Errorf("files = %d", n)
	}
}

func TestDocumentService_MissingBytes(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, store := newDocumentService(t, repo, DocumentConfig{}, nil)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, c.ID.Hex(), pdfUpload(32), "Resume", "u")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := os.Remove(filepath.Join(store.Root(), filepath.FromSlash(doc.FilePath))); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err = svc.Get(ctx, c.ID.Hex(), doc.ID.Hex())
	wantCode(t, err, apperr.CodeFileNotFound, http.StatusNotFound)

	_, err = svc.Get(ctx, c.ID.Hex(), primitive.NewObjectID().Hex())
	wantCode(t, err, apperr.CodeDocumentNotFound, http.StatusNotFound)
}

func TestDocumentService_TextExtraction(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		ex      fakeExtractor
		want    string
	}{
		{"stored", true, fakeExtractor{text: "golang kubernetes"}, "golang kubernetes"},
		{"disabled", false, fakeExtractor{text: "golang"}, ""},
		{"failure is ignored", true, fakeExtractor{err: errors.New("corrupt pdf")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memstore.New()
			c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
			svc, _ := newDocumentService(t, repo, DocumentConfig{ExtractText: tt.enabled}, tt.ex)

			doc, err := svc.Upload(context.Background(), c.ID.Hex(), pdfUpload(16), "Resume", "u")
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			raw, _ := repo.Raw(c.ID)
			if got := raw.Documents[0].ExtractedText; got != tt.want {
				t.Errorf("extracted text = %q, want %q", got, tt.want)
			}
			if doc.ID != raw.Documents[0].ID {
				t.Error("returned document does not match stored one")
			}
		})
	}
}

func TestDocumentService_Stats(t *testing.T) {
	repo := memstore.New()
	c := mustCreate(t, repo, "Jane", "Doe", "jane@example.com")
	svc, _ := newDocumentService(t, repo, DocumentConfig{}, nil)
	ctx := context.Background()

	empty, err := svc.Stats(ctx, c.ID.Hex())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.Count != 0 || empty.Oldest != nil || empty.Newest != nil {
		t.Errorf("empty stats = %+v", empty)
	}

	day := 24 * time.Hour
	var last *model.Document
	for i, docType := range []string{"Resume", "Resume", "Portfolio"} {
		at := testNow.Add(time.Duration(i) * day)
		svc.now = func() time.Time { return at }
		doc, err := svc.Upload(ctx, c.ID.Hex(), pdfUpload(100*(i+1)), docType, "u")
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		last = doc
	}
	if err := svc.Delete(ctx, c.ID.Hex(), last.ID.Hex(), "u"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	stats, err := svc.Stats(ctx, c.ID.Hex())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 2 || stats.TotalSize != 300 || stats.ByType["Resume"] != 2 || stats.ByType["Portfolio"] != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.Oldest.Equal(testNow) || !stats.Newest.Equal(testNow.Add(day)) {
		t.Errorf("bounds = %v .. %v", stats.Oldest, stats.Newest)
	}
}
