package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/models"
)

// Upload writes an object under the media directory. Keys are owner-scoped
// paths; anything trying to escape the bucket directory is rejected.
func (g *Gateway) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if strings.Contains(key, "..") {
		return models.NewValidationError("Invalid object key")
	}
	path := filepath.Join(g.mediaDir, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewGatewayError("upload "+bucket, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewGatewayError("upload "+bucket, err)
	}
	return nil
}

// PublicURL returns the URL the media route serves this object under.
func (g *Gateway) PublicURL(bucket, key string) string {
	return g.mediaBase + "/media/" + bucket + "/" + key
}
