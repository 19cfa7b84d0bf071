package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/memrepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
)

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

func testAudit(t *testing.T, m *metrics.Collector) (*AuditService, *memrepo.AuditRepository) {
	t.Helper()
	repo := memrepo.NewAuditRepository()
	svc := NewAuditService(repo, m, zap.NewNop())
	t.Cleanup(func() { svc.Shutdown(time.Second) })
	return svc, repo
}

var (
	adminCaller  = Caller{UserID: uuid.New(), Role: domain.RoleAdmin}
	doctorAPH    = Caller{UserID: uuid.New(), Role: domain.RoleDoctor, Location: "APH"}
	doctorOther  = Caller{UserID: uuid.New(), Role: domain.RoleDoctor, Location: "OtherSite"}
	doctorNoSite = Caller{UserID: uuid.New(), Role: domain.RoleDoctor}
)

// fakeConsultationRepo wraps an in-memory repository and lets a test
// override single methods.
type fakeConsultationRepo struct {
	*memrepo.ConsultationRepository

	ListFn              func(ctx context.Context, q *consultation.ListQuery) (*consultation.PagedRecords, error)
	MarkVideoUploadedFn func(ctx context.Context, id, folder string, at time.Time) error

	listCalls int
}

func newFakeRepo() *fakeConsultationRepo {
	return &fakeConsultationRepo{ConsultationRepository: memrepo.NewConsultationRepository()}
}

func (f *fakeConsultationRepo) List(ctx context.Context, q *consultation.ListQuery) (*consultation.PagedRecords, error) {
	f.listCalls++
	if f.ListFn != nil {
		return f.ListFn(ctx, q)
	}
	return f.ConsultationRepository.List(ctx, q)
}

func (f *fakeConsultationRepo) MarkVideoUploaded(ctx context.Context, id, folder string, at time.Time) error {
	if f.MarkVideoUploadedFn != nil {
		return f.MarkVideoUploadedFn(ctx, id, folder, at)
	}
	return f.ConsultationRepository.MarkVideoUploaded(ctx, id, folder, at)
}

func seedRecord(t *testing.T, repo consultation.Repository, id, location string, date time.Time) *consultation.Record {
	t.Helper()
	rec := &consultation.Record{
		ID:            id,
		PatientName:   "John Doe",
		UHID:          "UH-" + id[len(id)-4:],
		Department:    "Cardiology",
		ConditionType: consultation.ConditionNormal,
		Location:      location,
		Date:          date,
		Status:        consultation.StatusPending,
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
	return rec
}
