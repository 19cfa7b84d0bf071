package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
)

const testID = "65f0c2a1b3d4e5f601234567"

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	root := t.TempDir()
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)
	s := NewFileStore(config.StorageConfig{Root: root, SubFolder: "videos"}, WithClock(func() time.Time { return fixed }))
	return s, root
}

func TestParseFolder(t *testing.T) {
	f, err := ParseFolder("05-03-2024")
	require.NoError(t, err)
	assert.Equal(t, "05-03-2024", f)

	for _, bad := range []string{"", "5-3-2024", "2024-03-05", "32-01-2024", "05/03/2024", "../../etc"} {
		_, err := ParseFolder(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	s, root := newTestStore(t)

	first, err := s.Resolve("01-02-2024")
	require.NoError(t, err)
	second, err := s.Resolve("01-02-2024")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, filepath.Join(root, "videos", "01-02-2024"), first)

	info, err := os.Stat(first)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolve_DefaultsToToday(t *testing.T) {
	s, root := newTestStore(t)

	dir, err := s.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "videos", "15-03-2024"), dir)
	assert.Equal(t, "15-03-2024", s.FolderFor("garbage"))
	assert.Equal(t, "02-01-2024", s.FolderFor("02-01-2024"))
}

func TestResolve_InvalidDate(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Resolve("2024-01-02")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestResolve_RootUnavailable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not-mounted")
	s := NewFileStore(config.StorageConfig{Root: missing, SubFolder: "videos"})

	_, err := s.Resolve("01-02-2024")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = s.Save(context.Background(), "01-02-2024", testID+".webm", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, _, err = s.Open("01-02-2024", testID+".webm")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "root must not be created by the store")
}

func TestSave_RoundTrip(t *testing.T) {
	s, root := newTestStore(t)
	payload := bytes.Repeat([]byte("webm"), 4096)

	saved, err := s.Save(context.Background(), "01-02-2024", testID+".webm", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "01-02-2024/"+testID+".webm", saved.RelPath())
	assert.Equal(t, int64(len(payload)), saved.Size)

	got, err := os.ReadFile(filepath.Join(root, "videos", "01-02-2024", testID+".webm"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	f, info, err := s.Open("01-02-2024", testID+".webm")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len(payload)), info.Size())
}

func TestSave_OverwriteLeavesSingleFile(t *testing.T) {
	s, root := newTestStore(t)

	_, err := s.Save(context.Background(), "01-02-2024", testID+".webm", strings.NewReader("first upload"))
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "01-02-2024", testID+".webm", strings.NewReader("second"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "videos", "01-02-2024"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := os.ReadFile(filepath.Join(root, "videos", "01-02-2024", testID+".webm"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

type failingReader struct {
	data []byte
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	s, root := newTestStore(t)
	dir := filepath.Join(root, "videos", "01-02-2024")

	_, err := s.Save(context.Background(), "01-02-2024", testID+".webm", strings.NewReader("complete"))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "01-02-2024", testID+".webm", &failingReader{data: []byte("partial")})
	require.Error(t, err)

	got, err := os.ReadFile(filepath.Join(dir, testID+".webm"))
	require.NoError(t, err)
	assert.Equal(t, "complete", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging file must be cleaned up")
}

func TestSave_CancelledContextLeavesNoFile(t *testing.T) {
	s, root := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, "01-02-2024", testID+".webm", strings.NewReader("never lands"))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(filepath.Join(root, "videos", "01-02-2024"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_ConcurrentDifferentIDs(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("65f0c2a1b3d4e5f60123456%d.webm", i)
			body := bytes.Repeat([]byte{byte('a' + i)}, 64*1024)
			_, err := s.Save(context.Background(), "01-02-2024", name, bytes.NewReader(body))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("65f0c2a1b3d4e5f60123456%d.webm", i)
		f, _, err := s.Open("01-02-2024", name)
		require.NoError(t, err)
		got, err := io.ReadAll(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte('a' + i)}, 64*1024), got)
	}
	assert.Equal(t, 0, s.locks.size())
}

func TestSave_ConcurrentSameIDIsNeverMixed(t *testing.T) {
	s, _ := newTestStore(t)
	bodies := [][]byte{
		bytes.Repeat([]byte("A"), 256*1024),
		bytes.Repeat([]byte("B"), 256*1024),
		bytes.Repeat([]byte("C"), 256*1024),
	}

	var wg sync.WaitGroup
	for _, b := range bodies {
		wg.Add(1)
		go func(b []byte) {
			defer wg.Done()
			_, err := s.Save(context.Background(), "01-02-2024", testID+".webm", bytes.NewReader(b))
			assert.NoError(t, err)
		}(b)
	}
	wg.Wait()

	f, _, err := s.Open("01-02-2024", testID+".webm")
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)

	matched := false
	for _, b := range bodies {
		if bytes.Equal(got, b) {
			matched = true
		}
	}
	assert.True(t, matched, "final file must be exactly one complete upload")
}

func TestOpen_NotFoundAndInvalidNames(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Resolve("01-02-2024")
	require.NoError(t, err)

	_, _, err = s.Open("01-02-2024", testID+".webm")
	assert.ErrorIs(t, err, ErrVideoNotFound)

	for _, name := range []string{"", "..", "../secret.webm", `..\secret.webm`, ".hidden.webm.part"} {
		_, _, err := s.Open("01-02-2024", name)
		assert.ErrorIs(t, err, ErrInvalidFilename, name)
	}

	_, _, err = s.Open("../..", testID+".webm")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestFoldersAndList(t *testing.T) {
	s, root := newTestStore(t)
	for _, d := range []string{"01-02-2024", "15-03-2024", "20-04-2024"} {
		_, err := s.Save(context.Background(), d, testID+".webm", strings.NewReader(d))
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "videos", "not-a-date"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", "15-03-2024", ".x.webm.1.part"), []byte("x"), 0o644))

	all, err := s.Folders(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"01-02-2024", "15-03-2024", "20-04-2024"}, all)

	some, err := s.Folders(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"15-03-2024"}, some)

	files, err := s.List("15-03-2024")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, testID+".webm", files[0].FileName)

	ok, err := s.Exists("15-03-2024", testID+".webm")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Exists("16-03-2024", testID+".webm")
	require.NoError(t, err)
	assert.False(t, ok)
}
