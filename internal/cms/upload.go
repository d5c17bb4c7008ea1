package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"loveinaction/internal/models"
)

// UploadTarget attaches an upload to a field of an existing record
type UploadTarget struct {
	Ref   string // e.g. api::child.child
	RefID int64
	Field string
}

// Upload sends one file to the media library
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, target *UploadTarget) ([]models.Media, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if target != nil {
		_ = w.WriteField("ref", target.Ref)
		_ = w.WriteField("refId", strconv.FormatInt(target.RefID, 10))
		_ = w.WriteField("field", target.Field)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", w.FormDataContentType())
	raw, err := c.Raw(ctx, http.MethodPost, "/api/upload", nil, &buf, header)
	if err != nil {
		return nil, err
	}

	var files []models.Media
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return files, nil
}

// ListUploads returns every file in the media library
func (c *Client) ListUploads(ctx context.Context) ([]models.Media, error) {
	raw, err := c.Raw(ctx, http.MethodGet, "/api/upload/files", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var files []models.Media
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("failed to decode media list: %w", err)
	}
	return files, nil
}
