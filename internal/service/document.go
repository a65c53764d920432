package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nexus-ats/internal/apperr"
	"nexus-ats/internal/blob"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/model"
	"nexus-ats/internal/storage"
)

// TextExtractor pulls plain text out of a document for the search index.
type TextExtractor interface {
	Supports(mimeType string) bool
	Extract(data []byte, mimeType string) (string, error)
}

type DocumentConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes []string
	ExtractText      bool
}

// FileUpload is the payload of one uploaded file.
type FileUpload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Data         []byte
}

// DocumentContent is a document record together with its bytes.
type DocumentContent struct {
	Document model.Document
	Data     []byte
}

// DocumentStats summarizes a candidate's active documents.
type DocumentStats struct {
	Count     int            `json:"count"`
	TotalSize int64          `json:"totalSize"`
	ByType    map[string]int `json:"byType"`
	Oldest    *time.Time     `json:"oldest,omitempty"`
	Newest    *time.Time     `json:"newest,omitempty"`
}

type DocumentService struct {
	repo      storage.CandidateRepository
	store     blob.Store
	extractor TextExtractor
	cfg       DocumentConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewDocumentService wires the service. extractor may be nil, which turns
// text extraction off.
func NewDocumentService(repo storage.CandidateRepository, store blob.Store, extractor TextExtractor, cfg DocumentConfig, log zerolog.Logger) *DocumentService {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = model.MaxDocumentSize
	}
	if len(cfg.AllowedMimeTypes) == 0 {
		cfg.AllowedMimeTypes = model.AllowedMimeTypes
	}
	return &DocumentService{
		repo:      repo,
		store:     store,
		extractor: extractor,
		cfg:       cfg,
		log:       log.With().Str("component", "document_service").Logger(),
		now:       defaultClock,
	}
}

// Upload stores the bytes, then appends the metadata to the candidate. If
// the append fails the bytes are deleted again.
func (s *DocumentService) Upload(ctx context.Context, candidateID string, file FileUpload, documentType, uploadedBy string) (_ *model.Document, err error) {
	defer func() {
		if err != nil {
			result := metrics.ResultFailure
			if apperr.Status(err) < 500 {
				result = metrics.ResultRejected
			}
			metrics.DocumentUploads.WithLabelValues(result).Inc()
		}
	}()
	defer finish(ctx, s.log, &err, apperr.CodeUploadError, "Failed to upload document")

	oid, err := model.ParseObjectID("candidate ID", candidateID)
	if err != nil {
		return nil, err
	}
	if documentType == "" {
		documentType = string(model.DocumentOther)
	}
	meta := model.DocumentMetadata{
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		Size:         file.Size,
		DocumentType: documentType,
	}
	if err := model.ValidateDocumentMetadata(meta, s.cfg.MaxFileSize, model.AllowedMimeTypes); err != nil {
		return nil, err
	}
	if int64(len(file.Data)) != file.Size {
		return nil, apperr.Validation([]apperr.FieldError{{
			Field:   "size",
			Code:    "SIZE_INVALID_VALUE",
			Message: fmt.Sprintf("Declared size %d does not match content length %d", file.Size, len(file.Data)),
		}})
	}
	if !containsString(s.cfg.AllowedMimeTypes, file.MimeType) {
		return nil, apperr.New(apperr.CodeUnsupportedFileType,
			"File type "+file.MimeType+" is not accepted", http.StatusUnsupportedMediaType)
	}

	if _, err := s.repo.FindActive(ctx, oid); err != nil {
		return nil, candidateNotFound(err)
	}

	now := s.now()
	filename := generateFilename(oid, file.OriginalName)
	doc := model.Document{
		ID:           primitive.NewObjectID(),
		Filename:     filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		Size:         file.Size,
		DocumentType: model.DocumentType(documentType),
		FilePath:     path.Join("candidates", oid.Hex(), filename),
		UploadedBy:   uploadedBy,
		UploadDate:   now,
		IsActive:     true,
	}

	if err := s.store.Write(ctx, doc.FilePath, file.Data); err != nil {
		return nil, err
	}

	doc.ExtractedText = s.extract(ctx, doc, file.Data)

	if _, err := s.repo.PushDocument(ctx, oid, doc, now); err != nil {
		s.compensate(doc.FilePath)
		return nil, candidateNotFound(err)
	}

	metrics.DocumentUploads.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.DocumentUploadBytes.Add(float64(doc.Size))
	s.log.Info().
		Str("candidate_id", candidateID).
		Str("document_id", doc.ID.Hex()).
		Str("mime_type", doc.MimeType).
		Int64("size", doc.Size).
		Msg("document uploaded")
	return &doc, nil
}

// extract never fails the upload.
func (s *DocumentService) extract(ctx context.Context, doc model.Document, data []byte) string {
	if !s.cfg.ExtractText || s.extractor == nil || !s.extractor.Supports(doc.MimeType) {
		return ""
	}
	text, err := s.extractor.Extract(data, doc.MimeType)
	if err != nil {
		metrics.TextExtractions.WithLabelValues(metrics.ResultFailure).Inc()
		s.log.Warn().Err(err).Str("document_id", doc.ID.Hex()).Msg("text extraction failed")
		return ""
	}
	metrics.TextExtractions.WithLabelValues(metrics.ResultSuccess).Inc()
	return text
}

// compensate removes bytes whose metadata could not be recorded. It uses a
// fresh context so a cancelled request still cleans up.
func (s *DocumentService) compensate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metrics.DocumentUploads.WithLabelValues(metrics.ResultCompensated).Inc()
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("path", key).Msg("orphaned document bytes could not be removed")
		return
	}
	s.log.Warn().Str("path", key).Msg("removed document bytes after metadata append failed")
}

// Get returns an active document and its bytes.
func (s *DocumentService) Get(ctx context.Context, candidateID, documentID string) (_ *DocumentContent, err error) {
	defer finish(ctx, s.log, &err, codeDocumentError, "Failed to retrieve document")

	_, doc, err := s.activeDocument(ctx, candidateID, documentID)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(ctx, doc.FilePath)
	if errors.Is(err, blob.ErrNotFound) {
		s.log.Warn().Str("document_id", documentID).Str("path", doc.FilePath).Msg("document bytes missing from storage")
		return nil, apperr.NotFound(apperr.CodeFileNotFound, "Document file not found in storage")
	}
	if err != nil {
		return nil, err
	}
	return &DocumentContent{Document: *doc, Data: data}, nil
}

// List returns the candidate's active documents.
func (s *DocumentService) List(ctx context.Context, candidateID string) (_ []model.Document, err error) {
	defer finish(ctx, s.log, &err, codeDocumentError, "Failed to list documents")

	c, err := loadActive(ctx, s.repo, candidateID)
	if err != nil {
		return nil, err
	}
	return c.ActiveDocuments(), nil
}

// Delete soft-deletes a document. The stored bytes are kept.
func (s *DocumentService) Delete(ctx context.Context, candidateID, documentID, deletedBy string) (err error) {
	defer finish(ctx, s.log, &err, codeDocumentError, "Failed to delete document")

	c, doc, err := s.activeDocument(ctx, candidateID, documentID)
	if err != nil {
		return err
	}
	if _, err := s.repo.SoftDeleteDocument(ctx, c.ID, doc.ID, deletedBy, s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(apperr.CodeDocumentNotFound, msgDocumentNotFound)
		}
		return err
	}
	s.log.Info().Str("candidate_id", candidateID).Str("document_id", documentID).Str("deleted_by", deletedBy).Msg("document soft-deleted")
	return nil
}

// Stats summarizes the candidate's active documents.
func (s *DocumentService) Stats(ctx context.Context, candidateID string) (_ *DocumentStats, err error) {
	defer finish(ctx, s.log, &err, codeDocumentError, "Failed to compute document statistics")

	c, err := loadActive(ctx, s.repo, candidateID)
	if err != nil {
		return nil, err
	}

	stats := &DocumentStats{ByType: map[string]int{}}
	for _, d := range c.ActiveDocuments() {
		stats.Count++
		stats.TotalSize += d.Size
		stats.ByType[string(d.DocumentType)]++

		at := d.UploadDate
		if stats.Oldest == nil || at.Before(*stats.Oldest) {
			stats.Oldest = &at
		}
		if stats.Newest == nil || at.After(*stats.Newest) {
			stats.Newest = &at
		}
	}
	return stats, nil
}

// activeDocument loads the active candidate and its active document.
func (s *DocumentService) activeDocument(ctx context.Context, candidateID, documentID string) (*model.Candidate, *model.Document, error) {
	docID, err := model.ParseObjectID("document ID", documentID)
	if err != nil {
		return nil, nil, err
	}
	c, err := loadActive(ctx, s.repo, candidateID)
	if err != nil {
		return nil, nil, err
	}
	doc, ok := c.FindDocument(docID)
	if !ok || !doc.IsActive {
		return nil, nil, apperr.NotFound(apperr.CodeDocumentNotFound, msgDocumentNotFound)
	}
	return c, doc, nil
}

// generateFilename embeds the candidate id, a nanosecond timestamp and a
// random suffix so concurrent uploads of the same file never collide.
func generateFilename(candidateID primitive.ObjectID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(originalName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%s_%d_%s%s", candidateID.Hex(), time.Now().UnixNano(), uuid.New().String()[:8], ext)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
