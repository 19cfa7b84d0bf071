// Package memrepo keeps repositories in process memory. It backs the
// "memory" database driver for local runs and the service tests.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

type ConsultationRepository struct {
	mu      sync.RWMutex
	records map[string]*consultation.Record
	now     func() time.Time
}

func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{
		records: make(map[string]*consultation.Record),
		now:     time.Now,
	}
}

func (r *ConsultationRepository) Create(_ context.Context, rec *consultation.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return consultation.ErrAlreadyExists
	}
	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.records[rec.ID] = clone(rec)
	return nil
}

func (r *ConsultationRepository) GetByID(_ context.Context, id string) (*consultation.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, consultation.ErrNotFound
	}
	return clone(rec), nil
}

func (r *ConsultationRepository) Update(_ context.Context, id string, cmd *consultation.UpdateCommand) (*consultation.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, consultation.ErrNotFound
	}
	cmd.Apply(rec)
	rec.UpdatedAt = r.now().UTC()
	return clone(rec), nil
}

func (r *ConsultationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return consultation.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *ConsultationRepository) List(_ context.Context, q *consultation.ListQuery) (*consultation.PagedRecords, error) {
	r.mu.RLock()
	matched := make([]*consultation.Record, 0)
	for _, rec := range r.records {
		if q.Predicate.Matches(rec) {
			matched = append(matched, clone(rec))
		}
	}
	r.mu.RUnlock()

	sortRecords(matched, q.SortBy, q.SortOrder)

	total := int64(len(matched))
	if q.PageSize > 0 {
		start := min(q.Offset(), len(matched))
		end := min(start+q.PageSize, len(matched))
		matched = matched[start:end]
	}
	return consultation.NewPagedRecords(matched, total, q), nil
}

// sortRecords orders by the sort field in the requested direction. Ties are
// always broken by ID descending.
func sortRecords(recs []*consultation.Record, by consultation.SortField, order consultation.SortOrder) {
	desc := order != consultation.SortAsc
	cmp := func(a, b *consultation.Record) int {
		switch by {
		case consultation.SortByDate:
			return a.Date.Compare(b.Date)
		case consultation.SortByPatientName:
			return strings.Compare(a.PatientName, b.PatientName)
		case consultation.SortByUHID:
			return strings.Compare(a.UHID, b.UHID)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		c := cmp(recs[i], recs[j])
		if c == 0 {
			return recs[i].ID > recs[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func (r *ConsultationRepository) MarkVideoUploaded(_ context.Context, id, folder string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return consultation.ErrNotFound
	}
	t := at
	rec.VideoUploadedAt = &t
	rec.VideoFolder = folder
	rec.Status = consultation.StatusCompleted
	rec.UpdatedAt = r.now().UTC()
	return nil
}

func (r *ConsultationRepository) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.records[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (r *ConsultationRepository) ListByVideoFolders(_ context.Context, folders []string) ([]*consultation.Record, error) {
	want := make(map[string]bool, len(folders))
	for _, f := range folders {
		want[f] = true
	}

	r.mu.RLock()
	out := make([]*consultation.Record, 0)
	for _, rec := range r.records {
		if rec.VideoUploadedAt != nil && want[rec.VideoFolder] {
			out = append(out, clone(rec))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].VideoFolder != out[j].VideoFolder {
			return out[i].VideoFolder < out[j].VideoFolder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ConsultationRepository) Ping(context.Context) error {
	return nil
}

func clone(rec *consultation.Record) *consultation.Record {
	c := *rec
	if rec.VideoUploadedAt != nil {
		t := *rec.VideoUploadedAt
		c.VideoUploadedAt = &t
	}
	return &c
}
