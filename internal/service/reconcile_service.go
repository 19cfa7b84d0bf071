package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/storage"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

// Longest range whose day folders are enumerated individually when looking
// for records whose whole folder has disappeared.
const maxEnumeratedDays = 3 * 366

type OrphanVideo struct {
	Folder   string    `json:"folder"`
	FileName string    `json:"fileName"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
}

type MissingVideo struct {
	ConsultationID string `json:"consultationId"`
	Folder         string `json:"folder"`
	UHID           string `json:"uhid"`
	Location       string `json:"location"`
}

type ReconcileReport struct {
	GeneratedAt    time.Time      `json:"generatedAt"`
	FoldersScanned int            `json:"foldersScanned"`
	VideosScanned  int            `json:"videosScanned"`
	OrphanVideos   []OrphanVideo  `json:"orphanVideos"`
	MissingVideos  []MissingVideo `json:"missingVideos"`
}

// ReconcileService compares the video tree with the metadata store. It only
// reports; nothing is deleted or rewritten.
type ReconcileService struct {
	store   VideoStore
	repo    consultation.Repository
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

func NewReconcileService(store VideoStore, repo consultation.Repository, m *metrics.Collector, log *zap.Logger) *ReconcileService {
	return &ReconcileService{store: store, repo: repo, metrics: m, log: log, now: time.Now}
}

// Run scans date folders in [from, to]; zero bounds are open.
func (s *ReconcileService) Run(ctx context.Context, from, to time.Time) (*ReconcileReport, error) {
	ctx, span := tracer.Tracer().Start(ctx, "ReconcileService.Run")
	defer span.End()

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, &ValidationError{Fields: []string{"from must not be after to"}}
	}

	folders, err := s.store.Folders(from, to)
	if err != nil {
		return nil, fmt.Errorf("listing video folders: %w", err)
	}

	report := &ReconcileReport{
		GeneratedAt:    s.now().UTC(),
		FoldersScanned: len(folders),
		OrphanVideos:   []OrphanVideo{},
		MissingVideos:  []MissingVideo{},
	}

	byID := make(map[string]storage.VideoFile)
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.store.List(folder)
		if err != nil {
			return nil, fmt.Errorf("listing folder %s: %w", folder, err)
		}
		for _, f := range files {
			report.VideosScanned++
			id, err := consultation.ParseID(strings.TrimSuffix(f.FileName, filepath.Ext(f.FileName)))
			if err != nil {
				report.OrphanVideos = append(report.OrphanVideos, orphanOf(f))
				continue
			}
			// Same id in several folders: each copy is checked on its own below.
			byID[folder+"/"+id] = f
		}
	}

	ids := make([]string, 0, len(byID))
	seen := make(map[string]bool, len(byID))
	for key := range byID {
		id := key[strings.LastIndexByte(key, '/')+1:]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	existing, err := s.repo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checking consultation ids: %w", err)
	}
	for key, f := range byID {
		id := key[strings.LastIndexByte(key, '/')+1:]
		if !existing[id] {
			report.OrphanVideos = append(report.OrphanVideos, orphanOf(f))
		}
	}

	uploaded, err := s.repo.ListByVideoFolders(ctx, s.candidateFolders(folders, from, to))
	if err != nil {
		return nil, fmt.Errorf("listing uploaded consultations: %w", err)
	}
	for _, rec := range uploaded {
		ok, err := s.store.Exists(rec.VideoFolder, rec.VideoFileName())
		if err != nil {
			return nil, fmt.Errorf("checking video for %s: %w", rec.ID, err)
		}
		if !ok {
			report.MissingVideos = append(report.MissingVideos, MissingVideo{
				ConsultationID: rec.ID,
				Folder:         rec.VideoFolder,
				UHID:           rec.UHID,
				Location:       rec.Location,
			})
		}
	}

	sortOrphans(report.OrphanVideos)

	s.metrics.ReconcileFindings.WithLabelValues("orphan_video").Add(float64(len(report.OrphanVideos)))
	s.metrics.ReconcileFindings.WithLabelValues("missing_video").Add(float64(len(report.MissingVideos)))
	span.SetAttributes(
		attribute.Int("reconcile.orphans", len(report.OrphanVideos)),
		attribute.Int("reconcile.missing", len(report.MissingVideos)),
	)

	s.log.Info("reconciliation finished",
		zap.Int("folders", report.FoldersScanned),
		zap.Int("videos", report.VideosScanned),
		zap.Int("orphan_videos", len(report.OrphanVideos)),
		zap.Int("missing_videos", len(report.MissingVideos)),
	)
	return report, nil
}

// candidateFolders is every folder a record may point at: those on disk, plus
// each day of a bounded range so that a folder deleted wholesale is noticed.
func (s *ReconcileService) candidateFolders(onDisk []string, from, to time.Time) []string {
	set := make(map[string]bool, len(onDisk))
	out := append([]string(nil), onDisk...)
	for _, f := range onDisk {
		set[f] = true
	}
	if from.IsZero() || to.IsZero() {
		return out
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	for d, n := start, 0; !d.After(end) && n < maxEnumeratedDays; d, n = d.AddDate(0, 0, 1), n+1 {
		name := d.Format(storage.DateLayout)
		if !set[name] {
			set[name] = true
			out = append(out, name)
		}
	}
	return out
}

func orphanOf(f storage.VideoFile) OrphanVideo {
	return OrphanVideo{Folder: f.Folder, FileName: f.FileName, Size: f.Size, ModTime: f.ModTime}
}

func sortOrphans(v []OrphanVideo) {
	less := func(a, b OrphanVideo) bool {
		ta, _ := time.Parse(storage.DateLayout, a.Folder)
		tb, _ := time.Parse(storage.DateLayout, b.Folder)
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a.FileName < b.FileName
	}
	sort.Slice(v, func(i, j int) bool { return less(v[i], v[j]) })
}
