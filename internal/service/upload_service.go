package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

// VideoStore is the part of storage.FileStore the services use.
type VideoStore interface {
	FolderFor(date string) string
	Save(ctx context.Context, folder, fileName string, src io.Reader) (*storage.SavedVideo, error)
	Open(date, fileName string) (*os.File, fs.FileInfo, error)
	Exists(folder, fileName string) (bool, error)
	Folders(from, to time.Time) ([]string, error)
	List(folder string) ([]storage.VideoFile, error)
	CheckAvailable() error
}

type UploadService struct {
	store    VideoStore
	repo     consultation.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewUploadService(store VideoStore, repo consultation.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *UploadService {
	return &UploadService{
		store:    store,
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

type UploadInput struct {
	ConsultationID string
	// Optional DD-MM-YYYY; anything else means today.
	Date        string
	ContentType string
	// Nil when the request carried no video part.
	Body io.Reader
}

type UploadResult struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// Ingest stores one uploaded video under its canonical name. The metadata
// record is updated afterwards on a best-effort basis: a missing or
// unreachable record does not fail an upload whose bytes are safely stored.
func (s *UploadService) Ingest(ctx context.Context, caller Caller, in UploadInput) (*UploadResult, error) {
	id, err := consultation.ParseID(in.ConsultationID)
	if err != nil {
		s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidIdentifier
	}
	if in.Body == nil {
		s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrMissingFile
	}
	if !IsVideoContentType(in.ContentType) {
		s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrUnsupportedMediaType
	}

	folder := s.store.FolderFor(in.Date)
	fileName := consultation.VideoFileName(id)

	ctx, span := tracer.Tracer().Start(ctx, "UploadService.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("consultation.id", id),
		attribute.String("video.folder", folder),
	)

	start := s.now()
	saved, err := s.store.Save(ctx, folder, fileName, in.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.recordSaveFailure(ctx, id, folder, err)
		return nil, err
	}

	s.metrics.UploadsTotal.WithLabelValues("stored").Inc()
	s.metrics.UploadBytesTotal.Add(float64(saved.Size))
	s.metrics.UploadDuration.Observe(s.now().Sub(start).Seconds())
	span.SetAttributes(attribute.Int64("video.bytes", saved.Size))

	if err := s.repo.MarkVideoUploaded(ctx, id, saved.Folder, s.now().UTC()); err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			s.log.Warn("video stored for unknown consultation",
				logger.ConsultationID(id),
				zap.String("file_path", saved.RelPath()),
			)
		} else {
			s.log.Error("video stored but metadata update failed",
				logger.ErrorClass(logger.ClassMetadataStore),
				logger.ConsultationID(id),
				zap.String("file_path", saved.RelPath()),
				zap.Error(err),
			)
		}
	}

	entry := caller.audit(domain.ActionUpload, "video", id)
	entry.Changes = fmt.Sprintf(`{"filePath":%q,"size":%d}`, saved.RelPath(), saved.Size)
	s.auditSvc.LogAsync(ctx, entry)

	s.log.Info("video uploaded",
		logger.ConsultationID(id),
		zap.String("file_path", saved.RelPath()),
		zap.Int64("bytes", saved.Size),
		zap.String("user_id", caller.UserID.String()),
	)

	return &UploadResult{FilePath: saved.RelPath(), FileName: saved.FileName, Size: saved.Size}, nil
}

func (s *UploadService) recordSaveFailure(ctx context.Context, id, folder string, err error) {
	switch {
	case errors.Is(err, storage.ErrStorageUnavailable):
		s.metrics.UploadsTotal.WithLabelValues("storage_unavailable").Inc()
		s.metrics.StorageUnavailable.Inc()
		s.log.Error("storage unavailable during upload",
			logger.ErrorClass(logger.ClassStorageUnavailable),
			logger.ConsultationID(id),
			zap.String("folder", folder),
			zap.Error(err),
		)
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		s.metrics.UploadsTotal.WithLabelValues("aborted").Inc()
		s.log.Info("upload aborted by client",
			logger.ConsultationID(id),
			zap.Error(err),
		)
	default:
		s.metrics.UploadsTotal.WithLabelValues("failed").Inc()
		s.log.Error("upload failed",
			logger.ConsultationID(id),
			zap.String("folder", folder),
			zap.Error(err),
		)
	}
}

// IsVideoContentType accepts any video/* media type, ignoring parameters
// such as codecs. Browser recorders send unquoted codec lists like
// "video/webm;codecs=vp9,opus", which mime rejects as a bad parameter but
// still returns the media type for.
func IsVideoContentType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil && !errors.Is(err, mime.ErrInvalidMediaParameter) {
		return false
	}
	return strings.HasPrefix(mt, "video/") && len(mt) > len("video/")
}
