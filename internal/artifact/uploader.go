// Package artifact uploads packaged run archives to pre-signed storage URLs
// so finished runs do not accumulate on the API host.
package artifact

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"resty.dev/v3"

	"github.com/vk/biosweep/internal/ctxlog"
)

// Uploader puts files to pre-signed URLs.
type Uploader struct {
	client *resty.Client
}

// NewUploader returns an Uploader with the given per-upload timeout.
func NewUploader(timeout time.Duration) *Uploader {
	return &Uploader{client: resty.New().SetTimeout(timeout)}
}

// Upload streams the file at sourcePath to the pre-signed URL with a
// content type inferred from the file extension.
func (u *Uploader) Upload(ctx context.Context, sourcePath, uploadURL string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload", "source", sourcePath)

	contentType := mime.TypeByExtension(filepath.Ext(sourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %q: %w", sourcePath, err)
	}
	defer file.Close()

	logger.Info("Uploading run archive.", "contentType", contentType)
	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(file).
		Put(uploadURL)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload failed with status: %s", resp.Status())
	}

	logger.Info("Successfully uploaded run archive.", "status", resp.Status())
	return nil
}

// Close releases the underlying HTTP client.
func (u *Uploader) Close() error {
	return u.client.Close()
}
