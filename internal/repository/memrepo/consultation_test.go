package memrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

func seed(t *testing.T, repo *ConsultationRepository, recs ...*consultation.Record) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, repo.Create(context.Background(), r))
	}
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC)
}

func ids(recs []*consultation.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestList_SortTieBreakByID(t *testing.T) {
	repo := NewConsultationRepository()
	seed(t, repo,
		&consultation.Record{ID: "b", PatientName: "Same", Date: day(1)},
		&consultation.Record{ID: "a", PatientName: "Same", Date: day(1)},
		&consultation.Record{ID: "c", PatientName: "Alpha", Date: day(2)},
	)

	asc, err := repo.List(context.Background(), &consultation.ListQuery{SortBy: consultation.SortByPatientName, SortOrder: consultation.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(asc.Records), "ties stay id descending when ascending")

	desc, err := repo.List(context.Background(), &consultation.ListQuery{SortBy: consultation.SortByPatientName, SortOrder: consultation.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(desc.Records))
}

func TestList_ScopedAndPaged(t *testing.T) {
	repo := NewConsultationRepository()
	seed(t, repo,
		&consultation.Record{ID: "1", Location: "APH", Date: day(1)},
		&consultation.Record{ID: "2", Location: "aph", Date: day(2)},
		&consultation.Record{ID: "3", Location: "Central", Date: day(3)},
		&consultation.Record{ID: "4", Location: "APH", Date: day(4)},
	)

	p, err := consultation.BuildPredicate(consultation.FilterInput{}, domain.AccessContext{Role: domain.RoleDoctor, Location: "APH"}, time.UTC)
	require.NoError(t, err)

	page, err := repo.List(context.Background(), &consultation.ListQuery{
		Predicate: p,
		SortBy:    consultation.SortByDate,
		SortOrder: consultation.SortAsc,
		Page:      1,
		PageSize:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount, "aph is a different location from APH")
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"1", "4"}, ids(page.Records))
}

func TestUpdate_ReturnsCopy(t *testing.T) {
	repo := NewConsultationRepository()
	seed(t, repo, &consultation.Record{ID: "1", PatientName: "Old", UHID: "U1"})

	name := "New"
	got, err := repo.Update(context.Background(), "1", &consultation.UpdateCommand{PatientName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", got.PatientName)
	assert.Equal(t, "U1", got.UHID)

	got.PatientName = "mutated"
	again, err := repo.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "New", again.PatientName)

	_, err = repo.Update(context.Background(), "missing", &consultation.UpdateCommand{PatientName: &name})
	assert.ErrorIs(t, err, consultation.ErrNotFound)
}

func TestCreateDuplicate(t *testing.T) {
	repo := NewConsultationRepository()
	seed(t, repo, &consultation.Record{ID: "1"})
	assert.ErrorIs(t, repo.Create(context.Background(), &consultation.Record{ID: "1"}), consultation.ErrAlreadyExists)
}

func TestVideoBookkeeping(t *testing.T) {
	repo := NewConsultationRepository()
	seed(t, repo, &consultation.Record{ID: "1"}, &consultation.Record{ID: "2"})

	require.NoError(t, repo.MarkVideoUploaded(context.Background(), "2", "01-03-2024", day(1)))
	assert.ErrorIs(t, repo.MarkVideoUploaded(context.Background(), "9", "01-03-2024", day(1)), consultation.ErrNotFound)

	found, err := repo.ExistingIDs(context.Background(), []string{"1", "9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true}, found)

	uploaded, err := repo.ListByVideoFolders(context.Background(), []string{"01-03-2024"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(uploaded))
}
