package uploads

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

var (
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 16)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...)
)

type fakeUploader struct {
	result UploadResult
	err    error
	calls  int
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	f.calls++
	if f.err != nil {
		return UploadResult{}, f.err
	}
	return f.result, nil
}

func newIntake(u Uploader) *Intake {
	return NewIntake(u, 1024, 2, zerolog.Nop())
}

func TestAddAppendsReference(t *testing.T) {
	u := &fakeUploader{result: UploadResult{URL: "https://cdn.example.com/a.png", MediaID: "m-1"}}
	i := newIntake(u)

	refs, err := i.Add(context.Background(), nil, "a.png", pngBytes)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs))
	}
	if refs[0].URL != "https://cdn.example.com/a.png" || refs[0].MediaID != "m-1" {
		t.Fatalf("unexpected reference %+v", refs[0])
	}
}

func TestAddRejectsUnsupportedType(t *testing.T) {
	u := &fakeUploader{}
	i := newIntake(u)

	_, err := i.Add(context.Background(), nil, "notes.txt", []byte("plain text, not an image"))
	if !errors.Is(err, domain.ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}
	if u.calls != 0 {
		t.Fatal("uploader must not be called for rejected files")
	}
}

func TestAddRejectsOversizedFile(t *testing.T) {
	u := &fakeUploader{}
	i := newIntake(u)

	big := append(append([]byte(nil), jpegBytes...), make([]byte, 2048)...)
	_, err := i.Add(context.Background(), nil, "big.jpg", big)
	if !errors.Is(err, domain.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestAddEnforcesReferenceCap(t *testing.T) {
	u := &fakeUploader{result: UploadResult{URL: "u", MediaID: "m"}}
	i := newIntake(u)

	refs := []domain.Reference{{URL: "1"}, {URL: "2"}}
	_, err := i.Add(context.Background(), refs, "a.png", pngBytes)
	if !errors.Is(err, domain.ErrReferenceLimit) {
		t.Fatalf("expected ErrReferenceLimit, got %v", err)
	}
}

func TestAddUploadFailureLeavesListUnchanged(t *testing.T) {
	u := &fakeUploader{err: errors.New("bucket unavailable")}
	i := newIntake(u)

	refs := []domain.Reference{{URL: "existing"}}
	got, err := i.Add(context.Background(), refs, "a.png", pngBytes)
	if err == nil {
		t.Fatal("expected upload error")
	}
	if len(got) != 1 || got[0].URL != "existing" {
		t.Fatalf("reference list must be unchanged on failure, got %+v", got)
	}
}
