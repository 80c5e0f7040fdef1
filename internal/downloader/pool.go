package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one file for the pool to fetch.
type Job struct {
	URL      string
	Filename string
}

// WorkerPool runs downloads with bounded concurrency.
type WorkerPool struct {
	downloader  *Downloader
	concurrency int

	// OnResult, when set, is called once per finished job from the worker
	// that ran it. It must be safe for concurrent use.
	OnResult func(*DownloadResult)
}

// NewWorkerPool creates a pool of concurrency workers (clamped to 1..16).
func NewWorkerPool(concurrency int, timeout time.Duration, userAgent string) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 3
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return &WorkerPool{
		downloader:  NewDownloader(timeout, userAgent),
		concurrency: concurrency,
	}
}

// DownloadBatch fetches every job into opts.OutputDir. Results are returned
// in job order; jobs skipped because ctx ended carry ctx's error.
func (wp *WorkerPool) DownloadBatch(ctx context.Context, jobs []Job, opts DownloadOptions) []*DownloadResult {
	results := make([]*DownloadResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency && w <= len(jobs); w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range idx {
				job := jobs[i]
				log.Debug().Int("worker_id", id).Str("url", job.URL).Msg("Worker processing download")

				o := opts
				o.Filename = job.Filename
				res := wp.downloader.Download(ctx, job.URL, o)
				results[i] = res
				if wp.OnResult != nil {
					wp.OnResult(res)
				}
			}
		}(w)
	}

feed:
	for i := range jobs {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()

	for i, r := range results {
		if r == nil {
			results[i] = &DownloadResult{URL: jobs[i].URL, Error: ctx.Err(), StartTime: time.Now()}
		}
	}
	return results
}
