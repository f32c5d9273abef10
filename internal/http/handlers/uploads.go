package handlers

import (
	"errors"
	"io"
	"net/http"

	"studio/internal/domain"
)

// UploadReference validates and stores one reference image, returning the
// durable URL plus the opaque media id some engines require.
func (a *App) UploadReference(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read file")
		return
	}

	refs, err := a.Intake.Add(r.Context(), nil, header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedMediaType):
			a.error(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "only png, jpeg, and webp images are accepted")
		case errors.Is(err, domain.ErrFileTooLarge):
			a.error(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit")
		default:
			a.Logger.Error().Err(err).Str("filename", header.Filename).Msg("handlers: upload failed")
			a.error(w, http.StatusBadGateway, "upload_failed", "failed to store reference")
		}
		return
	}
	a.json(w, http.StatusCreated, refs[0])
}
