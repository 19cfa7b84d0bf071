package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

type VideoService struct {
	store    VideoStore
	repo     consultation.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	// When set, non-admins may only fetch videos of records at their location.
	scopeEnforced bool
}

func NewVideoService(store VideoStore, repo consultation.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger, scopeEnforced bool) *VideoService {
	return &VideoService{
		store:         store,
		repo:          repo,
		auditSvc:      auditSvc,
		metrics:       m,
		log:           log,
		scopeEnforced: scopeEnforced,
	}
}

// Open returns the stored file for (date, fileName). Every way of not finding
// it, including a scope refusal, is storage.ErrVideoNotFound so callers
// cannot discover videos they may not see. The caller closes the file.
func (s *VideoService) Open(ctx context.Context, caller Caller, date, fileName string) (*os.File, fs.FileInfo, error) {
	ctx, span := tracer.Tracer().Start(ctx, "VideoService.Open")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.folder", date),
		attribute.String("video.file", fileName),
	)

	if s.scopeEnforced && !caller.Access().IsAdmin() {
		if err := s.checkScope(ctx, caller, fileName); err != nil {
			return nil, nil, err
		}
	}

	f, info, err := s.store.Open(date, fileName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrStorageUnavailable):
			s.metrics.StorageUnavailable.Inc()
			s.log.Error("storage unavailable while serving video",
				logger.ErrorClass(logger.ClassStorageUnavailable),
				logger.VideoPath(date, fileName),
				zap.Error(err),
			)
			span.RecordError(err)
			return nil, nil, err
		case errors.Is(err, storage.ErrInvalidFilename), errors.Is(err, storage.ErrInvalidDate):
			return nil, nil, storage.ErrVideoNotFound
		}
		return nil, nil, err
	}

	return f, info, nil
}

// RecordPlayback audits a video being watched. Players fetch one recording
// as many range requests while seeking, so only a response that starts at
// offset 0 counts as a playback.
func (s *VideoService) RecordPlayback(ctx context.Context, caller Caller, date, fileName string, offset int64) {
	if offset != 0 {
		return
	}
	s.auditSvc.LogAsync(ctx, caller.audit(domain.ActionStream, "video", date+"/"+fileName))
}

func (s *VideoService) checkScope(ctx context.Context, caller Caller, fileName string) error {
	id, err := consultation.ParseID(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
	if err != nil {
		return storage.ErrVideoNotFound
	}
	rec, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, consultation.ErrNotFound) {
		return storage.ErrVideoNotFound
	}
	if err != nil {
		return err
	}
	if !caller.Access().CanSeeLocation(rec.Location) {
		s.log.Info("video fetch outside caller scope refused",
			zap.String("user_id", caller.UserID.String()),
			logger.ConsultationID(id),
		)
		return storage.ErrVideoNotFound
	}
	return nil
}

// RecordServed counts a finished response for metrics.
func (s *VideoService) RecordServed(status string, bytes int64) {
	s.metrics.VideoResponsesTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		s.metrics.VideoBytesServed.Add(float64(bytes))
	}
}
