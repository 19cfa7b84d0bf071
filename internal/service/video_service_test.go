package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
)

func newVideoService(t *testing.T, enforced bool) (*VideoService, *fakeConsultationRepo, *storage.FileStore) {
	t.Helper()
	m := testMetrics()
	audit, _ := testAudit(t, m)
	repo := newFakeRepo()
	store := storage.NewFileStore(config.StorageConfig{Root: t.TempDir(), SubFolder: "consultations"})
	return NewVideoService(store, repo, audit, m, zap.NewNop(), enforced), repo, store
}

func saveVideo(t *testing.T, store *storage.FileStore, folder, id string) {
	t.Helper()
	_, err := store.Save(context.Background(), folder, id+".webm", strings.NewReader("video"))
	require.NoError(t, err)
}

func TestVideoOpen_UnscopedByDefault(t *testing.T) {
	svc, repo, store := newVideoService(t, false)
	seedRecord(t, repo, idA, "APH", time.Now())
	saveVideo(t, store, "01-03-2024", idA)

	f, info, err := svc.Open(context.Background(), doctorOther, "01-03-2024", idA+".webm")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(5), info.Size())
}

func TestVideoOpen_ScopeEnforced(t *testing.T) {
	svc, repo, store := newVideoService(t, true)
	seedRecord(t, repo, idA, "APH", time.Now())
	saveVideo(t, store, "01-03-2024", idA)
	saveVideo(t, store, "01-03-2024", idB)

	_, _, err := svc.Open(context.Background(), doctorOther, "01-03-2024", idA+".webm")
	assert.ErrorIs(t, err, storage.ErrVideoNotFound)

	_, _, err = svc.Open(context.Background(), doctorAPH, "01-03-2024", idB+".webm")
	assert.ErrorIs(t, err, storage.ErrVideoNotFound, "no record means no access")

	f, _, err := svc.Open(context.Background(), doctorAPH, "01-03-2024", idA+".webm")
	require.NoError(t, err)
	f.Close()

	f, _, err = svc.Open(context.Background(), adminCaller, "01-03-2024", idB+".webm")
	require.NoError(t, err)
	f.Close()
}

func TestVideoOpen_BadNamesAreNotFound(t *testing.T) {
	svc, _, _ := newVideoService(t, false)

	for _, tc := range []struct{ date, name string }{
		{"01-03-2024", "../../etc/passwd"},
		{"2024-03-01", idA + ".webm"},
		{"01-03-2024", idA + ".webm"},
	} {
		_, _, err := svc.Open(context.Background(), adminCaller, tc.date, tc.name)
		assert.ErrorIs(t, err, storage.ErrVideoNotFound, tc)
	}
}

func TestRecordPlayback_OnlyFromStart(t *testing.T) {
	m := testMetrics()
	audit, auditRepo := testAudit(t, m)
	store := storage.NewFileStore(config.StorageConfig{Root: t.TempDir(), SubFolder: "consultations"})
	svc := NewVideoService(store, newFakeRepo(), audit, m, zap.NewNop(), false)

	ctx := context.Background()
	svc.RecordPlayback(ctx, doctorAPH, "01-03-2024", idA+".webm", 0)
	for _, offset := range []int64{4096, 1 << 20, 52_428_800} {
		svc.RecordPlayback(ctx, doctorAPH, "01-03-2024", idA+".webm", offset)
	}
	svc.RecordPlayback(ctx, doctorAPH, "01-03-2024", idA+".webm", 0)
	audit.Shutdown(time.Second)

	entries := auditRepo.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.ActionStream, e.Action)
		assert.Equal(t, "01-03-2024/"+idA+".webm", e.ResourceID)
	}
}
