package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   newZapGormLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DNS(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit"}
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&consultation.Record{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	createIndexes(db, log)

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the indexes AutoMigrate cannot express. Failures are
// logged, not fatal: pg_trgm may be unavailable on managed instances.
func createIndexes(db *gorm.DB, log *zap.Logger) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		log.Warn("pg_trgm extension unavailable; substring filters will scan", zap.Error(err))
	}

	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_consultations_location_date",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_location_date ON clinical.consultations (LOWER(TRIM(location)), date DESC, id DESC)`,
		},
		{
			name:  "idx_consultations_created_id",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_created_id ON clinical.consultations (created_at DESC, id DESC)`,
		},
		// ILIKE '%x%' filters
		{
			name:  "idx_consultations_patient_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_patient_trgm ON clinical.consultations USING gin (patient_name gin_trgm_ops)`,
		},
		{
			name:  "idx_consultations_uhid_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_uhid_trgm ON clinical.consultations USING gin (uhid gin_trgm_ops)`,
		},
		{
			name:  "idx_consultations_video_folder",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_video_folder ON clinical.consultations (video_folder, id) WHERE video_uploaded_at IS NOT NULL`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			log.Warn("creating index failed", zap.String("index", idx.name), zap.Error(err))
		}
	}
}
