package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/memrepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/mongorepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/pgrepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
)

// bootstrap loads configuration and builds the logger every command needs.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

type repositories struct {
	consultations consultation.Repository
	users         service.UserRepository
	audit         service.AuditRepository
	close         func(ctx context.Context) error
}

// openRepositories connects the configured metadata driver. migrate runs the
// schema step for postgres and index creation for mongo.
func openRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger, migrate bool) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(db, log); err != nil {
				return nil, err
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
		}
		return &repositories{
			consultations: pgrepo.NewConsultationRepository(db),
			users:         pgrepo.NewUserRepository(db),
			audit:         pgrepo.NewAuditRepository(db),
			close:         func(context.Context) error { return sqlDB.Close() },
		}, nil

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		consultations := mongorepo.NewConsultationRepository(db, cfg.Database.MongoTimeout)
		users := mongorepo.NewUserRepository(db)
		if migrate {
			if err := consultations.EnsureIndexes(ctx); err != nil {
				return nil, err
			}
			if err := users.EnsureIndexes(ctx); err != nil {
				return nil, err
			}
			log.Info("mongo indexes ensured", zap.String("database", cfg.Database.MongoDatabase))
		}
		return &repositories{
			consultations: consultations,
			users:         users,
			audit:         mongorepo.NewAuditRepository(db),
			close:         client.Disconnect,
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory metadata store; records are lost on restart")
		return &repositories{
			consultations: memrepo.NewConsultationRepository(),
			users:         memrepo.NewUserRepository(),
			audit:         memrepo.NewAuditRepository(),
			close:         func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
