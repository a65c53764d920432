package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/service"
)

// uploadOverhead is the multipart framing allowed on top of the file itself.
const uploadOverhead = 1 << 20

// UploadDocumentHandler stores a document for a candidate.
// @Summary Upload document
// @Description Multipart upload. The file part is "file"; "documentType" is optional and defaults to Other.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Candidate ID"
// @Param X-User-ID header string false "Acting user"
// @Param file formData file true "Document"
// @Param documentType formData string false "Resume, Cover Letter, Portfolio, Certificate or Other"
// @Success 201 {object} Response{data=model.Document}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 413 {object} Response
// @Failure 415 {object} Response
// @Router /api/candidates/{id}/documents [post]
func (a *API) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadSize+uploadOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, r, a.uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperr.Validation([]apperr.FieldError{{
			Field: "file", Code: "FILE_REQUIRED", Message: "A file is required",
		}}))
		return
	}
	defer file.Close()

	if header.Size > a.opts.MaxUploadSize {
		respondError(w, r, a.fileTooLarge())
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, a.uploadError(err))
		return
	}

	upload := service.FileUpload{
		OriginalName: header.Filename,
		MimeType:     contentType(header, data),
		Size:         int64(len(data)),
		Data:         data,
	}
	doc, err := a.svc.Documents.Upload(r.Context(), chi.URLParam(r, "id"), upload, r.FormValue("documentType"), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, doc)
}

func (a *API) fileTooLarge() error {
	return apperr.New(apperr.CodeFileTooLarge,
		fmt.Sprintf("File exceeds the maximum size of %d bytes", a.opts.MaxUploadSize),
		http.StatusRequestEntityTooLarge)
}

func (a *API) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return a.fileTooLarge()
	}
	return apperr.BadRequest(apperr.CodeUploadError, "Invalid multipart upload")
}

// contentType prefers the type the client declared for the part and sniffs
// the bytes when none was sent.
func contentType(header *multipart.FileHeader, data []byte) string {
	declared := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

// ListDocumentsHandler lists a candidate's active documents.
// @Summary List documents
// @Tags documents
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response{data=[]model.Document}
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/documents [get]
func (a *API) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := a.svc.Documents.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, docs)
}

// DocumentStatsHandler summarizes a candidate's active documents.
// @Summary Document statistics
// @Tags documents
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} Response{data=service.DocumentStats}
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/documents/stats [get]
func (a *API) DocumentStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Documents.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// DownloadDocumentHandler streams the stored bytes of a document.
// @Summary Download document
// @Tags documents
// @Produce octet-stream
// @Param id path string true "Candidate ID"
// @Param documentId path string true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/documents/{documentId} [get]
func (a *API) DownloadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	content, err := a.svc.Documents.Get(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "documentId"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	doc := content.Document
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

// DeleteDocumentHandler soft-deletes a document.
// @Summary Delete document
// @Tags documents
// @Produce json
// @Param id path string true "Candidate ID"
// @Param documentId path string true "Document ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/candidates/{id}/documents/{documentId} [delete]
func (a *API) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Documents.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "documentId"), userID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, "Document deleted")
}
