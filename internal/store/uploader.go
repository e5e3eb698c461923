package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inkwell/internal/gateway"
	"inkwell/internal/models"

	"github.com/google/uuid"
)

// UploadResult is the outcome for one input file: either a public URL or the
// error that prevented it. Slots keep the input order.
type UploadResult struct {
	URL string
	Err error
}

// Uploader fans file uploads out to object storage and resolves each
// successful upload to its public URL.
type Uploader struct {
	storage gateway.Storage
	log     *slog.Logger
}

// NewUploader creates an Uploader over the given storage surface.
func NewUploader(storage gateway.Storage, log *slog.Logger) *Uploader {
	if log == nil {
		log = slog.Default()
	}
	return &Uploader{storage: storage, log: log}
}

// Upload sends every file to the bucket under a key scoped to ownerID and
// returns one result slot per input file, in input order. Uploads run
// concurrently and all attempts settle before Upload returns. When
// abortOnError is set the first failure cancels the uploads still in flight.
func (u *Uploader) Upload(ctx context.Context, files []*models.Attachment, ownerID, bucket string, abortOnError bool) []UploadResult {
	results := make([]UploadResult, len(files))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f *models.Attachment) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i] = UploadResult{Err: models.NewUploadError(f.Name, err)}
				return
			}
			key := objectKey(ownerID, f.Name)
			if err := u.storage.Upload(ctx, bucket, key, f.ContentType, f.Data); err != nil {
				results[i] = UploadResult{Err: models.NewUploadError(f.Name, err)}
				if abortOnError {
					cancel()
				}
				return
			}
			results[i] = UploadResult{URL: u.storage.PublicURL(bucket, key)}
		}(i, f)
	}
	wg.Wait()
	return results
}

// UploadAll is the all-or-nothing composition used for blog attachments: any
// single failure fails the whole call and no URLs are returned.
func (u *Uploader) UploadAll(ctx context.Context, files []*models.Attachment, ownerID, bucket string) ([]string, error) {
	results := u.Upload(ctx, files, ownerID, bucket, true)
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		urls = append(urls, r.URL)
	}
	return urls, nil
}

// UploadBestEffort is the per-file resilient composition used for comment
// attachments: failed files are logged and dropped, successful URLs come back
// in input order.
func (u *Uploader) UploadBestEffort(ctx context.Context, files []*models.Attachment, ownerID, bucket string) []string {
	results := u.Upload(ctx, files, ownerID, bucket, false)
	urls := make([]string, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			u.log.Warn("image upload skipped", "file", files[i].Name, "bucket", bucket, "error", r.Err)
			continue
		}
		urls = append(urls, r.URL)
	}
	return urls
}

// objectKey derives a collision-resistant storage key under the owner's
// namespace, preserving the original extension.
func objectKey(ownerID, filename string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d-%s%s", ownerID, time.Now().UnixMilli(), suffix, ext)
}
