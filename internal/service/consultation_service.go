package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

const resourceConsultation = "consultation"

type ConsultationService struct {
	repo     consultation.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	// Zone used to interpret dateFrom/dateTo day bounds.
	loc *time.Location
	now func() time.Time
}

func NewConsultationService(repo consultation.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *ConsultationService {
	return &ConsultationService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
		loc:      time.Local,
		now:      time.Now,
	}
}

func (s *ConsultationService) Create(ctx context.Context, caller Caller, cmd *consultation.CreateCommand) (*consultation.Record, error) {
	condition, err := validateCreate(cmd)
	if err != nil {
		return nil, err
	}

	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}

	rec := &consultation.Record{
		ID:                       consultation.NewID(),
		PatientName:              strings.TrimSpace(cmd.PatientName),
		UHID:                     strings.TrimSpace(cmd.UHID),
		Department:               strings.TrimSpace(cmd.Department),
		DoctorName:               strings.TrimSpace(cmd.DoctorName),
		AttenderName:             strings.TrimSpace(cmd.AttenderName),
		ICUConsultantName:        strings.TrimSpace(cmd.ICUConsultantName),
		ConditionType:            condition,
		Location:                 strings.TrimSpace(caller.Location),
		Date:                     date,
		RecordingDurationSeconds: cmd.RecordingDurationSeconds,
		Status:                   consultation.StatusPending,
		CreatedBy:                caller.UserID,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.log.Error("failed to create consultation", zap.Error(err))
		return nil, fmt.Errorf("creating consultation: %w", err)
	}

	s.metrics.ConsultationsCreatedTotal.Inc()
	s.auditSvc.LogAsync(ctx, caller.audit(domain.ActionCreate, resourceConsultation, rec.ID))

	s.log.Info("consultation created",
		logger.ConsultationID(rec.ID),
		zap.String("location", rec.Location),
		zap.String("created_by", caller.UserID.String()),
	)
	return rec, nil
}

// Get returns a record the caller is allowed to see. Records outside a
// non-admin's location are reported as not found.
func (s *ConsultationService) Get(ctx context.Context, caller Caller, id string) (*consultation.Record, error) {
	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, caller.audit(domain.ActionRead, resourceConsultation, rec.ID))
	return rec, nil
}

func (s *ConsultationService) getScoped(ctx context.Context, caller Caller, id string) (*consultation.Record, error) {
	id, err := consultation.ParseID(id)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Access().CanSeeLocation(rec.Location) {
		return nil, consultation.ErrNotFound
	}
	return rec, nil
}

func (s *ConsultationService) Update(ctx context.Context, caller Caller, id string, cmd *consultation.UpdateCommand) (*consultation.Record, error) {
	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}

	current, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if cmd.Location != nil && !caller.Access().IsAdmin() {
		return nil, ErrForbidden
	}

	rec, err := s.repo.Update(ctx, current.ID, cmd)
	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			return nil, err
		}
		s.log.Error("failed to update consultation", logger.ConsultationID(current.ID), zap.Error(err))
		return nil, fmt.Errorf("updating consultation: %w", err)
	}

	entry := caller.audit(domain.ActionUpdate, resourceConsultation, rec.ID)
	entry.Changes = changedFields(cmd)
	s.auditSvc.LogAsync(ctx, entry)

	return rec, nil
}

// Delete removes metadata only. The video file, if any, stays on the share
// and will show up as an orphan in reconciliation.
func (s *ConsultationService) Delete(ctx context.Context, caller Caller, id string) error {
	if !caller.Access().IsAdmin() {
		return ErrForbidden
	}

	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rec.ID); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, caller.audit(domain.ActionDelete, resourceConsultation, rec.ID))

	if rec.VideoUploadedAt != nil {
		s.log.Warn("consultation deleted; its video was left in storage",
			logger.ConsultationID(rec.ID),
			zap.String("video_folder", rec.VideoFolder),
			zap.String("file_name", rec.VideoFileName()),
		)
	}
	return nil
}

type ListOptions struct {
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// List runs the scoped filter. A non-admin caller without a location gets an
// empty page and the store is not queried.
func (s *ConsultationService) List(ctx context.Context, caller Caller, in consultation.FilterInput, opts ListOptions) (*consultation.PagedRecords, error) {
	ctx, span := tracer.Tracer().Start(ctx, "ConsultationService.List")
	defer span.End()

	access := caller.Access()
	span.SetAttributes(
		attribute.String("caller.role", string(access.Role)),
		attribute.Bool("caller.has_location", access.HasLocation()),
	)

	q, err := buildListQuery(in, opts)
	if err != nil {
		return nil, err
	}

	pred, err := consultation.BuildPredicate(in, access, s.loc)
	switch {
	case errors.Is(err, consultation.ErrEmptyScope):
		s.metrics.ScopeEmptyTotal.Inc()
		s.log.Debug("list short-circuited: caller has no location",
			zap.String("user_id", caller.UserID.String()),
		)
		span.SetAttributes(attribute.Bool("scope.empty", true))
		return consultation.NewPagedRecords([]*consultation.Record{}, 0, q), nil
	case errors.Is(err, consultation.ErrInvalidDateFilter), errors.Is(err, consultation.ErrInvalidDateRange):
		return nil, &ValidationError{Fields: []string{err.Error()}}
	case err != nil:
		return nil, err
	}
	q.Predicate = pred

	page, err := s.repo.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		s.log.Error("failed to list consultations", zap.Error(err))
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	span.SetAttributes(attribute.Int64("result.total", page.TotalCount))

	s.auditSvc.LogAsync(ctx, caller.audit(domain.ActionList, resourceConsultation, ""))
	return page, nil
}

func buildListQuery(in consultation.FilterInput, opts ListOptions) (*consultation.ListQuery, error) {
	var errs []string

	sortBy, ok := consultation.ParseSortField(opts.SortBy)
	if !ok {
		errs = append(errs, "sortBy must be one of createdAt, date, patientName, uhid")
	}
	order, ok := consultation.ParseSortOrder(opts.SortOrder)
	if !ok {
		errs = append(errs, "sortOrder must be asc or desc")
	}
	if opts.Page < 0 {
		errs = append(errs, "page must not be negative")
	}
	if opts.PageSize < 0 || opts.PageSize > consultation.MaxPageSize {
		errs = append(errs, fmt.Sprintf("pageSize must be between 1 and %d", consultation.MaxPageSize))
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	q := &consultation.ListQuery{
		SortBy:    sortBy,
		SortOrder: order,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
	}
	if q.PageSize > 0 && q.Page == 0 {
		q.Page = 1
	}
	return q, nil
}

func validateCreate(cmd *consultation.CreateCommand) (consultation.ConditionType, error) {
	var errs []string

	if strings.TrimSpace(cmd.UHID) == "" {
		errs = append(errs, "uhid is required")
	}
	if strings.TrimSpace(cmd.PatientName) == "" {
		errs = append(errs, "patientName is required")
	}
	if strings.TrimSpace(cmd.Department) == "" {
		errs = append(errs, "department is required")
	}
	if cmd.RecordingDurationSeconds < 0 {
		errs = append(errs, "recordingDurationSeconds must not be negative")
	}
	condition, err := consultation.ParseConditionType(cmd.ConditionType)
	if err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return "", &ValidationError{Fields: errs}
	}
	return condition, nil
}

func validateUpdate(cmd *consultation.UpdateCommand) error {
	if cmd.IsEmpty() {
		return &ValidationError{Fields: []string{"no updatable fields supplied"}}
	}

	var errs []string
	if cmd.PatientName != nil && strings.TrimSpace(*cmd.PatientName) == "" {
		errs = append(errs, "patientName must not be empty")
	}
	if cmd.Department != nil && strings.TrimSpace(*cmd.Department) == "" {
		errs = append(errs, "department must not be empty")
	}
	if cmd.ConditionType != nil && !cmd.ConditionType.IsValid() {
		errs = append(errs, consultation.ErrInvalidConditionType.Error())
	}
	if cmd.Status != nil && !cmd.Status.IsValid() {
		errs = append(errs, consultation.ErrInvalidStatus.Error())
	}
	if cmd.RecordingDurationSeconds != nil && *cmd.RecordingDurationSeconds < 0 {
		errs = append(errs, "recordingDurationSeconds must not be negative")
	}
	if cmd.Date != nil && cmd.Date.IsZero() {
		errs = append(errs, "date must not be empty")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// changedFields is the audit payload for an update: which fields were set,
// never their values.
func changedFields(cmd *consultation.UpdateCommand) string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(cmd.PatientName != nil, "patientName")
	add(cmd.Department != nil, "department")
	add(cmd.DoctorName != nil, "doctorName")
	add(cmd.AttenderName != nil, "attenderName")
	add(cmd.ICUConsultantName != nil, "icuConsultantName")
	add(cmd.ConditionType != nil, "conditionType")
	add(cmd.Location != nil, "location")
	add(cmd.Date != nil, "date")
	add(cmd.RecordingDurationSeconds != nil, "recordingDurationSeconds")
	add(cmd.Status != nil, "status")

	b, err := json.Marshal(map[string][]string{"fields": fields})
	if err != nil {
		return "{}"
	}
	return string(b)
}
