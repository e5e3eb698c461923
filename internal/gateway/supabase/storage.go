package supabase

import (
	"bytes"
	"context"
	"net/http"

	"inkwell/internal/models"
)

// Upload stores an object under bucket/key. Keys are namespaced by owner
// upstream; this layer sends the bytes as-is.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	headers := map[string]string{"Content-Type": contentType}
	resp, err := c.do(ctx, http.MethodPost, "/storage/v1/object/"+bucket+"/"+key, nil, headers, bytes.NewReader(data))
	if err != nil {
		return models.NewGatewayError("upload "+bucket, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError("upload "+bucket, resp)
	}
	return nil
}

// PublicURL returns the public object URL for a stored key.
func (c *Client) PublicURL(bucket, key string) string {
	return c.baseURL + "/storage/v1/object/public/" + bucket + "/" + key
}
