package models

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"sync"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Attachment is a locally selected file waiting to be uploaded. The release
// hook frees whatever preview resource backs the selection (temp file, object
// URL forwarded from the browser) and must run exactly once: at the earlier
// of the user removing the attachment or the editing context tearing down.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte

	releaseOnce sync.Once
	release     func()
}

// NewAttachment builds an attachment with an optional release hook.
func NewAttachment(name, contentType string, data []byte, release func()) *Attachment {
	return &Attachment{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		release:     release,
	}
}

// Release frees the preview resource behind this attachment. Safe to call
// more than once; only the first call runs the hook.
func (a *Attachment) Release() {
	a.releaseOnce.Do(func() {
		if a.release != nil {
			a.release()
		}
	})
}

// ReleaseAll releases every attachment in the list.
func ReleaseAll(attachments []*Attachment) {
	for _, a := range attachments {
		a.Release()
	}
}

// SniffImage validates that the attachment holds a decodable image of an
// allowed type. The declared content type is ignored in favor of sniffing.
func (a *Attachment) SniffImage() error {
	if len(a.Data) == 0 {
		return NewValidationError("No file uploaded")
	}
	detected := http.DetectContentType(a.Data)
	if !strings.HasPrefix(detected, "image/") {
		return NewValidationError("Invalid image type")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(a.Data)); err != nil {
		return NewValidationError("Invalid image file")
	}
	return nil
}

// ClampImageQuota trims incoming so that existing+len(result) stays within
// MaxCommentImages. Both the initial selection and the edit-addition path go
// through this. Dropped selections are released immediately.
func ClampImageQuota(existing int, incoming []*Attachment) []*Attachment {
	remaining := MaxCommentImages - existing
	if remaining < 0 {
		remaining = 0
	}
	if len(incoming) <= remaining {
		return incoming
	}
	for _, dropped := range incoming[remaining:] {
		dropped.Release()
	}
	return incoming[:remaining]
}
