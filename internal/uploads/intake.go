// Package uploads validates reference images and hands them to the asset
// uploader, producing the durable URL plus opaque media id a submission
// attaches to a task.
package uploads

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// DefaultMaxBytes caps a single reference upload.
const DefaultMaxBytes = 10 << 20

// DefaultMaxReferences caps the active reference list of one task.
const DefaultMaxReferences = 4

var allowedMIMETypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// UploadResult is the durable handle returned by the uploader.
type UploadResult struct {
	URL     string `json:"url"`
	MediaID string `json:"media_id"`
}

// Uploader converts raw bytes into a stored reference.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (UploadResult, error)
}

// Intake performs validation and list-cap enforcement in front of the
// uploader.
type Intake struct {
	uploader Uploader
	maxBytes int64
	maxRefs  int
	logger   zerolog.Logger
}

func NewIntake(uploader Uploader, maxBytes int64, maxRefs int, logger zerolog.Logger) *Intake {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxRefs <= 0 {
		maxRefs = DefaultMaxReferences
	}
	return &Intake{uploader: uploader, maxBytes: maxBytes, maxRefs: maxRefs, logger: logger}
}

// MaxReferences returns the reference list cap.
func (i *Intake) MaxReferences() int { return i.maxRefs }

// Validate checks size and sniffed MIME type before any upload happens.
func (i *Intake) Validate(filename string, data []byte) error {
	if int64(len(data)) > i.maxBytes {
		return fmt.Errorf("uploads: %s is %d bytes (max %d): %w", filename, len(data), i.maxBytes, domain.ErrFileTooLarge)
	}
	mime := mimetype.Detect(data)
	if _, ok := allowedMIMETypes[mime.String()]; !ok {
		return fmt.Errorf("uploads: %s detected as %s: %w", filename, mime.String(), domain.ErrUnsupportedMediaType)
	}
	return nil
}

// Add validates and uploads one file, appending the resulting reference to
// refs. The reference list is capped; on any failure refs is returned
// unchanged.
func (i *Intake) Add(ctx context.Context, refs []domain.Reference, filename string, data []byte) ([]domain.Reference, error) {
	if len(refs) >= i.maxRefs {
		return refs, fmt.Errorf("uploads: already holding %d references: %w", len(refs), domain.ErrReferenceLimit)
	}
	if err := i.Validate(filename, data); err != nil {
		return refs, err
	}
	result, err := i.uploader.Upload(ctx, filename, data)
	if err != nil {
		i.logger.Error().Err(err).Str("filename", filename).Msg("uploads: upload failed")
		return refs, fmt.Errorf("uploads: upload %s: %w", filename, err)
	}
	i.logger.Debug().Str("filename", filename).Str("media_id", result.MediaID).Msg("uploads: reference stored")
	return append(refs, domain.Reference{URL: result.URL, MediaID: result.MediaID}), nil
}
