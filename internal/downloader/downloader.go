package downloader

import (
	"context"
	"path/filepath"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"
	"clubkit/pkg/storage"
)

// ManifestWriter records per-club manifests after a page's downloads settle
type ManifestWriter interface {
	WriteManifest(manifest *storage.Manifest) error
}

// DirReserver hands out club directory names. When the storage implements
// it, names are reserved in record order before any worker starts, so a
// collision always suffixes the later club.
type DirReserver interface {
	DirName(club string) string
}

// Options configures a KitDownloader
type Options struct {
	Workers int
	// Manifests is optional; when nil no manifest is written
	Manifests ManifestWriter
	Logger    logger.Logger
}

// KitDownloader saves every kit image of a batch of records through a
// bounded worker pool.
type KitDownloader struct {
	fetcher   AssetFetcher
	storage   KitStorage
	manifests ManifestWriter
	workers   int
	logger    logger.Logger
}

// New creates a kit downloader
func New(fetcher AssetFetcher, store KitStorage, opts Options) *KitDownloader {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &KitDownloader{
		fetcher:   fetcher,
		storage:   store,
		manifests: opts.Manifests,
		workers:   opts.Workers,
		logger:    log.WithField("component", "downloader"),
	}
}

// BatchResult tallies one batch of downloads
type BatchResult struct {
	Results             []DownloadResult
	Succeeded           int
	Failed              int
	UnknownContentTypes int
}

// DownloadRecords downloads every image of records and returns once all of
// them have finished. One file failing never stops its siblings. If ctx is
// cancelled, queued files are abandoned and the results gathered so far are
// returned.
func (d *KitDownloader) DownloadRecords(ctx context.Context, records []models.ClubKitRecord) BatchResult {
	reserver, _ := d.storage.(DirReserver)
	var targets []models.DownloadTarget
	for _, rec := range records {
		if reserver != nil {
			reserver.DirName(rec.ClubName())
		}
		targets = append(targets, rec.Targets()...)
	}

	var batch BatchResult
	if len(targets) == 0 {
		return batch
	}

	workers := d.workers
	if workers > len(targets) {
		workers = len(targets)
	}

	pool := NewWorkerPool(ctx, workers, d.fetcher, d.storage, d.logger)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, target := range targets {
			if err := pool.Submit(target); err != nil {
				d.logger.WithError(err).Debug("Stopped submitting downloads")
				return
			}
		}
	}()

	for result := range pool.Results() {
		batch.Results = append(batch.Results, result)
		switch {
		case result.Success():
			batch.Succeeded++
		case errs.Is(result.Error, errs.ErrorTypeUnknownContentType):
			batch.UnknownContentTypes++
			batch.Failed++
		default:
			batch.Failed++
		}
	}

	if d.manifests != nil {
		d.writeManifests(records, batch.Results)
	}
	return batch
}

// DownloadRecord downloads the images of a single record
func (d *KitDownloader) DownloadRecord(ctx context.Context, record models.ClubKitRecord) BatchResult {
	return d.DownloadRecords(ctx, []models.ClubKitRecord{record})
}

func (d *KitDownloader) writeManifests(records []models.ClubKitRecord, results []DownloadResult) {
	byClub := make(map[string][]DownloadResult)
	for _, r := range results {
		byClub[r.Target.Club()] = append(byClub[r.Target.Club()], r)
	}

	for _, rec := range records {
		clubResults, ok := byClub[rec.ClubName()]
		if !ok {
			continue
		}

		manifest := &storage.Manifest{Club: rec.ClubName()}
		for _, r := range clubResults {
			entry := storage.ManifestEntry{
				Index:       r.Target.Index,
				SourceURL:   r.Target.URL().String(),
				ContentType: r.ContentType,
				Size:        r.Size,
				FetchedAt:   time.Now().Add(-r.Duration),
			}
			if r.Path != "" {
				entry.File = filepath.Base(r.Path)
			}
			if r.Error != nil {
				entry.Error = r.Error.Error()
			}
			manifest.Files = append(manifest.Files, entry)
		}

		if err := d.manifests.WriteManifest(manifest); err != nil {
			d.logger.WithError(err).WarnWithFields("Failed to write manifest", map[string]interface{}{
				"club": rec.ClubName(),
			})
		}
	}
}
