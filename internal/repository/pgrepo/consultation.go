// Package pgrepo implements the repositories on PostgreSQL through gorm.
package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

// Postgres caps bind parameters per statement; stay well below it.
const idBatchSize = 1000

type ConsultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

func (r *ConsultationRepository) Create(ctx context.Context, rec *consultation.Record) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return consultation.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting consultation: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id string) (*consultation.Record, error) {
	var rec consultation.Record
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consultation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching consultation %s: %w", id, err)
	}
	return &rec, nil
}

func (r *ConsultationRepository) Update(ctx context.Context, id string, cmd *consultation.UpdateCommand) (*consultation.Record, error) {
	var out *consultation.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec consultation.Record
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return consultation.ErrNotFound
		}
		if err != nil {
			return err
		}

		cmd.Apply(&rec)
		if err := tx.Model(&rec).Updates(updateColumns(cmd)).Error; err != nil {
			return err
		}
		out = &rec
		return nil
	})
	if errors.Is(err, consultation.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("updating consultation %s: %w", id, err)
	}
	return out, nil
}

// updateColumns lists only the columns the command sets, so zero values such
// as an empty doctor name are written rather than skipped.
func updateColumns(cmd *consultation.UpdateCommand) map[string]any {
	cols := map[string]any{}
	if cmd.PatientName != nil {
		cols["patient_name"] = *cmd.PatientName
	}
	if cmd.Department != nil {
		cols["department"] = *cmd.Department
	}
	if cmd.DoctorName != nil {
		cols["doctor_name"] = *cmd.DoctorName
	}
	if cmd.AttenderName != nil {
		cols["attender_name"] = *cmd.AttenderName
	}
	if cmd.ICUConsultantName != nil {
		cols["icu_consultant_name"] = *cmd.ICUConsultantName
	}
	if cmd.ConditionType != nil {
		cols["condition_type"] = *cmd.ConditionType
	}
	if cmd.Location != nil {
		cols["location"] = *cmd.Location
	}
	if cmd.Date != nil {
		cols["date"] = *cmd.Date
	}
	if cmd.RecordingDurationSeconds != nil {
		cols["recording_duration_seconds"] = *cmd.RecordingDurationSeconds
	}
	if cmd.Status != nil {
		cols["status"] = *cmd.Status
	}
	return cols
}

func (r *ConsultationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&consultation.Record{})
	if res.Error != nil {
		return fmt.Errorf("deleting consultation %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return consultation.ErrNotFound
	}
	return nil
}

func (r *ConsultationRepository) List(ctx context.Context, q *consultation.ListQuery) (*consultation.PagedRecords, error) {
	where, args, err := whereClause(q.Predicate)
	if err != nil {
		return nil, err
	}
	scoped := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&consultation.Record{})
		if where != "" {
			tx = tx.Where(where, args...)
		}
		return tx
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting consultations: %w", err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[consultation.SortByCreatedAt]
	}
	desc := q.SortOrder != consultation.SortAsc

	tx := scoped().
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	if q.PageSize > 0 {
		tx = tx.Limit(q.PageSize).Offset(q.Offset())
	}

	records := make([]*consultation.Record, 0)
	if err := tx.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	return consultation.NewPagedRecords(records, total, q), nil
}

func (r *ConsultationRepository) MarkVideoUploaded(ctx context.Context, id, folder string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&consultation.Record{}).Where("id = ?", id).Updates(map[string]any{
		"video_uploaded_at": at,
		"video_folder":      folder,
		"status":            consultation.StatusCompleted,
	})
	if res.Error != nil {
		return fmt.Errorf("marking video uploaded for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return consultation.ErrNotFound
	}
	return nil
}

func (r *ConsultationRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += idBatchSize {
		end := min(start+idBatchSize, len(ids))
		var batch []string
		err := r.db.WithContext(ctx).Model(&consultation.Record{}).
			Where("id IN ?", ids[start:end]).
			Pluck("id", &batch).Error
		if err != nil {
			return nil, fmt.Errorf("checking consultation ids: %w", err)
		}
		for _, id := range batch {
			found[id] = true
		}
	}
	return found, nil
}

func (r *ConsultationRepository) ListByVideoFolders(ctx context.Context, folders []string) ([]*consultation.Record, error) {
	records := make([]*consultation.Record, 0)
	if len(folders) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).
		Where("video_uploaded_at IS NOT NULL AND video_folder IN ?", folders).
		Order("video_folder, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing uploaded consultations: %w", err)
	}
	return records, nil
}

func (r *ConsultationRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
