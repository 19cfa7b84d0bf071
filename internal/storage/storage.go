// Package storage places consultation videos on the storage share and reads
// them back. The layout is fixed for compatibility with files written by
// earlier systems:
//
//	{root}/{subfolder}/{DD-MM-YYYY}/{consultationId}.webm
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
)

// DateLayout is the folder name format.
const DateLayout = "02-01-2006"

// FileStore is the filesystem implementation of the video store.
type FileStore struct {
	root     string
	base     string
	dirPerm  os.FileMode
	filePerm os.FileMode
	now      func() time.Time
	locks    *keyedMutex
}

type Option func(*FileStore)

// WithClock overrides the clock used for the default date folder.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

func NewFileStore(cfg config.StorageConfig, opts ...Option) *FileStore {
	s := &FileStore{
		root:     filepath.Clean(cfg.Root),
		base:     cfg.BasePath(),
		dirPerm:  cfg.DirPerm,
		filePerm: cfg.FilePerm,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
	if s.dirPerm == 0 {
		s.dirPerm = 0o755
	}
	if s.filePerm == 0 {
		s.filePerm = 0o644
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ParseFolder validates a DD-MM-YYYY string strictly.
func ParseFolder(date string) (string, error) {
	date = strings.TrimSpace(date)
	if len(date) != len(DateLayout) {
		return "", ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(DateLayout), nil
}

// FolderFor returns date when it is a valid folder name and today's folder
// otherwise. Ingestion uses this lenient form.
func (s *FileStore) FolderFor(date string) string {
	if f, err := ParseFolder(date); err == nil {
		return f
	}
	return s.Today()
}

// Today is the folder for the current date in the server's local zone.
func (s *FileStore) Today() string {
	return s.now().In(time.Local).Format(DateLayout)
}

// CheckAvailable reports whether the storage root is reachable.
func (s *FileStore) CheckAvailable() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrStorageUnavailable, s.root)
	}
	return nil
}

// Resolve maps a date folder to its directory and creates it if missing.
// An empty date means today; any other malformed value is ErrInvalidDate.
// Repeated calls for the same date return the same path.
func (s *FileStore) Resolve(date string) (string, error) {
	folder := s.Today()
	if strings.TrimSpace(date) != "" {
		f, err := ParseFolder(date)
		if err != nil {
			return "", err
		}
		folder = f
	}

	if err := s.CheckAvailable(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.base, folder)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrStorageUnavailable, folder, err)
	}
	return dir, nil
}

// SavedVideo describes a video that has been fully written and renamed into place.
type SavedVideo struct {
	Folder   string
	FileName string
	Size     int64
}

// RelPath is the path below the storage base, safe to show to clients.
func (v *SavedVideo) RelPath() string {
	return v.Folder + "/" + v.FileName
}

// Save streams src into {folder}/{fileName}. Bytes are staged in a hidden
// file inside the destination directory, synced, and renamed over the final
// name, so readers see either the previous complete file or the new one.
// Saves to the same folder and name are serialised.
func (s *FileStore) Save(ctx context.Context, folder, fileName string, src io.Reader) (*SavedVideo, error) {
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	dir, err := s.Resolve(folder)
	if err != nil {
		return nil, err
	}
	folder = filepath.Base(dir)

	unlock := s.locks.Lock(folder + "/" + fileName)
	defer unlock()

	tmp, err := os.CreateTemp(dir, "."+fileName+".*.part")
	if err != nil {
		return nil, s.classify(fmt.Errorf("creating staging file: %w", err))
	}
	staged := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(staged)
		}
	}()

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: src})
	if err != nil {
		return nil, s.classify(fmt.Errorf("writing staging file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return nil, s.classify(fmt.Errorf("syncing staging file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return nil, s.classify(fmt.Errorf("closing staging file: %w", err))
	}
	if err := os.Chmod(staged, s.filePerm); err != nil {
		return nil, s.classify(fmt.Errorf("setting permissions: %w", err))
	}

	final := filepath.Join(dir, fileName)
	if err := replaceFile(staged, final); err != nil {
		return nil, s.classify(err)
	}
	committed = true

	return &SavedVideo{Folder: folder, FileName: fileName, Size: n}, nil
}

// replaceFile renames staged over final. Some SMB mounts refuse to rename
// onto an existing file; then the old file is removed first, which can leave
// a short window with no file but never a partial one.
func replaceFile(staged, final string) error {
	err := os.Rename(staged, final)
	if err == nil {
		return nil
	}
	if _, statErr := os.Stat(final); statErr != nil {
		return fmt.Errorf("moving into place: %w", err)
	}
	if rmErr := os.Remove(final); rmErr != nil {
		return fmt.Errorf("moving into place: %w", err)
	}
	if err := os.Rename(staged, final); err != nil {
		return fmt.Errorf("moving into place after removing previous file: %w", err)
	}
	return nil
}

// Open returns the stored video for reading. The caller closes the file.
func (s *FileStore) Open(date, fileName string) (*os.File, fs.FileInfo, error) {
	folder, err := ParseFolder(date)
	if err != nil {
		return nil, nil, ErrInvalidFilename
	}
	if err := validateFileName(fileName); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.base, folder, fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if availErr := s.CheckAvailable(); availErr != nil {
				return nil, nil, availErr
			}
			return nil, nil, ErrVideoNotFound
		}
		return nil, nil, s.classify(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, s.classify(err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrVideoNotFound
	}
	return f, info, nil
}

// Exists reports whether {folder}/{fileName} is a regular file.
func (s *FileStore) Exists(folder, fileName string) (bool, error) {
	f, _, err := s.Open(folder, fileName)
	if err != nil {
		if errors.Is(err, ErrVideoNotFound) || errors.Is(err, ErrInvalidFilename) {
			return false, nil
		}
		return false, err
	}
	f.Close()
	return true, nil
}

// VideoFile is one entry found when scanning the tree.
type VideoFile struct {
	Folder   string
	FileName string
	Size     int64
	ModTime  time.Time
}

// Folders lists date folders whose date falls in [from, to]. Zero bounds are open.
func (s *FileStore) Folders(from, to time.Time) ([]string, error) {
	if err := s.CheckAvailable(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, s.classify(err)
	}

	type dated struct {
		name string
		at   time.Time
	}
	var found []dated
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		at, err := time.Parse(DateLayout, e.Name())
		if err != nil || at.Format(DateLayout) != e.Name() {
			continue
		}
		if !from.IsZero() && at.Before(truncateDay(from)) {
			continue
		}
		if !to.IsZero() && at.After(truncateDay(to)) {
			continue
		}
		found = append(found, dated{e.Name(), at})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	out := make([]string, len(found))
	for i, d := range found {
		out[i] = d.name
	}
	return out, nil
}

// List returns the videos in a date folder, skipping staging files.
func (s *FileStore) List(folder string) ([]VideoFile, error) {
	folder, err := ParseFolder(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.base, folder))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, s.classify(err)
	}

	var out []VideoFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, VideoFile{Folder: folder, FileName: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// classify upgrades err to ErrStorageUnavailable when the root is gone.
func (s *FileStore) classify(err error) error {
	if availErr := s.CheckAvailable(); availErr != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") ||
		filepath.Base(name) != name {
		return ErrInvalidFilename
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// contextReader stops a copy once ctx is done, so an aborted upload never
// reaches the rename.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
