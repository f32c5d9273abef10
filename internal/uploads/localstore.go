package uploads

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"studio/internal/storage"
)

// LocalUploader stores reference images on the local filesystem and serves
// them from the configured static base URL. It stands in for the hosted
// object store in development and tests.
type LocalUploader struct {
	store   *storage.FileStore
	baseURL string
}

func NewLocalUploader(store *storage.FileStore, baseURL string) *LocalUploader {
	return &LocalUploader{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *LocalUploader) Upload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	mediaID := uuid.NewString()
	ext := path.Ext(filename)
	key := fmt.Sprintf("references/%s%s", mediaID, ext)
	savedKey, err := u.store.Write(ctx, key, data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("uploads: persist reference: %w", err)
	}
	return UploadResult{
		URL:     u.baseURL + "/" + savedKey,
		MediaID: mediaID,
	}, nil
}

var _ Uploader = (*LocalUploader)(nil)
