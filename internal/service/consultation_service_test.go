package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

const (
	idA = "65f0c2a1b3d4e5f60123aaaa"
	idB = "65f0c2a1b3d4e5f60123bbbb"
	idC = "65f0c2a1b3d4e5f60123cccc"
)

func newConsultationService(t *testing.T) (*ConsultationService, *fakeConsultationRepo) {
	t.Helper()
	m := testMetrics()
	audit, _ := testAudit(t, m)
	repo := newFakeRepo()
	svc := NewConsultationService(repo, audit, m, zap.NewNop())
	svc.loc = time.UTC
	return svc, repo
}

func TestCreate_DefaultsAndLocationFromCaller(t *testing.T) {
	svc, _ := newConsultationService(t)

	rec, err := svc.Create(context.Background(), doctorAPH, &consultation.CreateCommand{
		PatientName: " John Doe ",
		UHID:        "UH1",
		Department:  "Cardiology",
	})
	require.NoError(t, err)

	assert.Len(t, rec.ID, 24)
	assert.Equal(t, "John Doe", rec.PatientName)
	assert.Equal(t, consultation.ConditionNormal, rec.ConditionType)
	assert.Equal(t, consultation.StatusPending, rec.Status)
	assert.Equal(t, "APH", rec.Location)
	assert.Equal(t, doctorAPH.UserID, rec.CreatedBy)
	assert.False(t, rec.Date.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newConsultationService(t)

	_, err := svc.Create(context.Background(), doctorAPH, &consultation.CreateCommand{ConditionType: "urgent"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestGet_OutsideScopeIsNotFound(t *testing.T) {
	svc, repo := newConsultationService(t)
	seedRecord(t, repo, idA, "APH", time.Now())

	_, err := svc.Get(context.Background(), doctorOther, idA)
	assert.ErrorIs(t, err, consultation.ErrNotFound)

	_, err = svc.Get(context.Background(), doctorNoSite, idA)
	assert.ErrorIs(t, err, consultation.ErrNotFound)

	lowerAPH := Caller{UserID: uuid.New(), Role: domain.RoleDoctor, Location: "aph"}
	_, err = svc.Get(context.Background(), lowerAPH, idA)
	assert.ErrorIs(t, err, consultation.ErrNotFound, "location scope is case-sensitive")

	rec, err := svc.Get(context.Background(), doctorAPH, idA)
	require.NoError(t, err)
	assert.Equal(t, idA, rec.ID)

	_, err = svc.Get(context.Background(), adminCaller, "not-an-id")
	assert.ErrorIs(t, err, consultation.ErrInvalidID)
}

func TestUpdate(t *testing.T) {
	svc, repo := newConsultationService(t)
	seedRecord(t, repo, idA, "APH", time.Now())

	name := "Jane Roe"
	rec, err := svc.Update(context.Background(), doctorAPH, idA, &consultation.UpdateCommand{PatientName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", rec.PatientName)
	assert.Equal(t, "UH-aaaa", rec.UHID)

	loc := "OtherSite"
	_, err = svc.Update(context.Background(), doctorAPH, idA, &consultation.UpdateCommand{Location: &loc})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(context.Background(), doctorAPH, idA, &consultation.UpdateCommand{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	bad := consultation.Status("archived")
	_, err = svc.Update(context.Background(), adminCaller, idA, &consultation.UpdateCommand{Status: &bad})
	assert.ErrorAs(t, err, &verr)
}

func TestDelete_AdminOnly(t *testing.T) {
	svc, repo := newConsultationService(t)
	seedRecord(t, repo, idA, "APH", time.Now())

	assert.ErrorIs(t, svc.Delete(context.Background(), doctorAPH, idA), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), adminCaller, idA))
	assert.ErrorIs(t, svc.Delete(context.Background(), adminCaller, idA), consultation.ErrNotFound)
}

func TestList_NoLocationSkipsStore(t *testing.T) {
	svc, repo := newConsultationService(t)
	repo.ListFn = func(context.Context, *consultation.ListQuery) (*consultation.PagedRecords, error) {
		t.Fatal("store must not be queried for a caller without a location")
		return nil, nil
	}

	page, err := svc.List(context.Background(), doctorNoSite, consultation.FilterInput{PatientName: "jo", Location: "APH"}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.NotNil(t, page.Records)
	assert.Equal(t, int64(0), page.TotalCount)
	assert.Equal(t, 0, repo.listCalls)
}

func TestList_NonAdminLocationOverridesFilter(t *testing.T) {
	svc, repo := newConsultationService(t)
	now := time.Now()
	seedRecord(t, repo, idA, "APH", now)
	seedRecord(t, repo, idB, "OtherSite", now)

	page, err := svc.List(context.Background(), doctorAPH, consultation.FilterInput{Location: "OtherSite"}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "APH", page.Records[0].Location)
}

func TestList_AdminSeesAllLocations(t *testing.T) {
	svc, repo := newConsultationService(t)
	now := time.Now()
	seedRecord(t, repo, idA, "APH", now)
	seedRecord(t, repo, idB, "OtherSite", now)
	seedRecord(t, repo, idC, "", now)

	page, err := svc.List(context.Background(), adminCaller, consultation.FilterInput{}, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Records, 3)
}

func TestList_SameDateOrderIsStable(t *testing.T) {
	svc, repo := newConsultationService(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, repo, idB, "APH", day)
	seedRecord(t, repo, idC, "APH", day)
	seedRecord(t, repo, idA, "APH", day)

	opts := ListOptions{SortBy: "date"}
	for i := 0; i < 5; i++ {
		page, err := svc.List(context.Background(), adminCaller, consultation.FilterInput{}, opts)
		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.Equal(t, []string{idC, idB, idA},
			[]string{page.Records[0].ID, page.Records[1].ID, page.Records[2].ID})
	}
}

func TestList_InvalidInputs(t *testing.T) {
	svc, _ := newConsultationService(t)
	var verr *ValidationError

	_, err := svc.List(context.Background(), adminCaller, consultation.FilterInput{DateFrom: "01-03-2024"}, ListOptions{})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.List(context.Background(), adminCaller, consultation.FilterInput{}, ListOptions{SortBy: "password"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.List(context.Background(), adminCaller, consultation.FilterInput{}, ListOptions{PageSize: consultation.MaxPageSize + 1})
	assert.ErrorAs(t, err, &verr)
}
