package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/memrepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
)

const (
	idA = "65f0c2a1b3d4e5f60123456a"
	idB = "65f0c2a1b3d4e5f60123456b"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	jwt    *auth.JWTManager
	auth   *service.AuthService
	repo   *memrepo.ConsultationRepository
	root   string

	auditSvc  *service.AuditService
	auditRepo *memrepo.AuditRepository
}

type envOptions struct {
	scopeEnforced  bool
	maxUploadBytes int64
	missingRoot    bool
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	root := t.TempDir()
	if opts.missingRoot {
		root = filepath.Join(root, "not-mounted")
	}
	if opts.maxUploadBytes == 0 {
		opts.maxUploadBytes = 8 << 20
	}

	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	jwtm := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "consultrec-test",
	})

	repo := memrepo.NewConsultationRepository()
	users := memrepo.NewUserRepository()
	auditRepo := memrepo.NewAuditRepository()
	auditSvc := service.NewAuditService(auditRepo, m, log)
	t.Cleanup(func() { auditSvc.Shutdown(time.Second) })

	store := storage.NewFileStore(config.StorageConfig{Root: root, SubFolder: "videos"})

	authSvc := service.NewAuthService(users, jwtm, auditSvc, log)
	h := NewHandler(Deps{
		Auth:          authSvc,
		Consultations: service.NewConsultationService(repo, auditSvc, m, log),
		Uploads:       service.NewUploadService(store, repo, auditSvc, m, log),
		Videos:        service.NewVideoService(store, repo, auditSvc, m, log, opts.scopeEnforced),
		Reconcile:     service.NewReconcileService(store, repo, m, log),
		Readiness: []ReadinessCheck{
			{Name: "storage", Check: func(context.Context) error { return store.CheckAvailable() }},
			{Name: "metadata", Check: repo.Ping},
		},
		Log:            log,
		MaxUploadBytes: opts.maxUploadBytes,
	})

	router := NewRouter(h, RouterConfig{JWT: jwtm, Metrics: m, Log: log})
	return &testEnv{
		router:    router,
		jwt:       jwtm,
		auth:      authSvc,
		repo:      repo,
		root:      root,
		auditSvc:  auditSvc,
		auditRepo: auditRepo,
	}
}

func (e *testEnv) token(t *testing.T, role domain.Role, location string) string {
	t.Helper()
	pair, err := e.jwt.GenerateTokenPair(&domain.Claims{
		UserID:   uuid.New(),
		Email:    "user@hospital.test",
		Role:     role,
		Location: location,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T, id, location string, date time.Time) {
	t.Helper()
	require.NoError(t, e.repo.Create(context.Background(), &consultation.Record{
		ID:            id,
		PatientName:   "John Doe",
		UHID:          "UH-" + id[len(id)-4:],
		Department:    "Cardiology",
		ConditionType: consultation.ConditionNormal,
		Location:      location,
		Date:          date,
		Status:        consultation.StatusPending,
	}))
}

type uploadForm struct {
	consultationID string
	date           string
	contentType    string
	video          []byte
	omitVideo      bool
}

func uploadRequest(t *testing.T, f uploadForm) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	require.NoError(t, mw.WriteField("consultationId", f.consultationID))
	if f.date != "" {
		require.NoError(t, mw.WriteField("date", f.date))
	}
	if !f.omitVideo {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="video"; filename="recording.webm"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(f.video)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consultations/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// auditActions drains the audit worker and returns the recorded actions.
func (e *testEnv) auditActions(t *testing.T) []domain.AuditAction {
	t.Helper()
	e.auditSvc.Shutdown(time.Second)
	var out []domain.AuditAction
	for _, entry := range e.auditRepo.Entries() {
		out = append(out, entry.Action)
	}
	return out
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}
