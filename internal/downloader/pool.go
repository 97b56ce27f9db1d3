package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"
	"clubkit/pkg/siteclient"
)

// DownloadResult is the outcome of one DownloadTarget
type DownloadResult struct {
	Target      models.DownloadTarget
	Path        string
	ContentType string
	Size        int64
	Error       error
	Duration    time.Duration
}

// Success reports whether the file was written
func (r DownloadResult) Success() bool {
	return r.Error == nil
}

// AssetFetcher fetches one kit asset
type AssetFetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*siteclient.Asset, error)
}

// KitStorage persists kit files and per-club manifests
type KitStorage interface {
	SaveKitFile(club string, index int, ext string, r io.Reader) (string, int64, error)
}

// WorkerPool runs download targets on a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan models.DownloadTarget
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     AssetFetcher
	storage     KitStorage
	logger      logger.Logger
}

// NewWorkerPool creates a pool whose workers stop when ctx is cancelled
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher AssetFetcher,
	storage KitStorage,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan models.DownloadTarget, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     storage,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs to finish and closes Results.
// It must be called by the goroutine that submits jobs, after the last Submit.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a target, blocking while the queue is full
func (wp *WorkerPool) Submit(target models.DownloadTarget) error {
	select {
	case wp.jobQueue <- target:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel results are delivered on. It is closed by Stop.
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for target := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		}

		result := wp.processJob(target)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob fetches and saves one file. Failures stay with this file.
func (wp *WorkerPool) processJob(target models.DownloadTarget) DownloadResult {
	start := time.Now()
	result := DownloadResult{Target: target}
	source := target.URL()

	asset, err := wp.fetcher.Fetch(wp.ctx, source)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, target.Club(), target.Index, "", err)
		return result
	}
	defer asset.Body.Close()

	result.ContentType = asset.ContentType
	path, size, err := wp.storage.SaveKitFile(target.Club(), target.Index, asset.Extension, asset.Body)
	if err != nil {
		if wp.ctx.Err() != nil {
			err = wp.ctx.Err()
		}
		result.Error = errs.Download(source.String(), err)
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, target.Club(), target.Index, "", result.Error)
		return result
	}

	result.Path = path
	result.Size = size
	result.Duration = time.Since(start)
	logger.LogDownload(wp.logger, target.Club(), target.Index, path, nil)
	return result
}
