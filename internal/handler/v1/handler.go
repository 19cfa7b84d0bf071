// Package v1 is the HTTP surface of the consultation recording API.
package v1

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
)

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Auth          *service.AuthService
	Consultations *service.ConsultationService
	Uploads       *service.UploadService
	Videos        *service.VideoService
	Reconcile     *service.ReconcileService
	Readiness     []ReadinessCheck
	Log           *zap.Logger

	// MaxUploadBytes caps the whole multipart request body.
	MaxUploadBytes int64
	// ExposeErrors appends internal error text to 500 bodies. Never set in production.
	ExposeErrors bool
}

type Handler struct {
	auth          *service.AuthService
	consultations *service.ConsultationService
	uploads       *service.UploadService
	videos        *service.VideoService
	reconcile     *service.ReconcileService
	readiness     []ReadinessCheck
	log           *zap.Logger

	maxUploadBytes int64
	exposeErrors   bool
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		auth:           d.Auth,
		consultations:  d.Consultations,
		uploads:        d.Uploads,
		videos:         d.Videos,
		reconcile:      d.Reconcile,
		readiness:      d.Readiness,
		log:            log,
		maxUploadBytes: d.MaxUploadBytes,
		exposeErrors:   d.ExposeErrors,
	}
}
