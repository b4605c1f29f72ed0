package media

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/imageproc"
	"portfolio/internal/pkg/utils"
	"portfolio/internal/storage"
)

const MaxFileSize = 50 * 1024 * 1024 // 50 MB

// allowedMimeTypes are the sniffed types accepted at upload. HEIC arrives
// as application/octet-stream from DetectContentType, so octet-stream is
// let through only when the buffer classifies as proprietary.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Service orchestrates the media pipeline: accept bytes, record them as
// pending, and later run sniff -> convert -> derive -> store for one item.
type Service struct {
	repo  Repository
	store ObjectStore
}

func NewService(repo Repository, store ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// Upload validates a raw buffer and records it as a pending media item.
// Processing happens out-of-band; the caller enqueues the returned id.
func (s *Service) Upload(ctx context.Context, originalName string, data []byte, meta Metadata) (*Media, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	mimeType := sniffMime(data)
	if !allowedMimeTypes[mimeType] {
		cls, err := imageproc.Classify(data)
		if err != nil || !cls.Proprietary {
			return nil, ErrInvalidMimeType
		}
		mimeType = "image/heic"
	}

	m := &Media{
		ID:           uuid.NewString(),
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		Status:       StatusPending,
		Data:         data,
		Title:        meta.Title,
		Description:  meta.Description,
		AltText:      meta.AltText,
		Tags:         utils.TagsToString(meta.Tags),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UploadFromURL ingests a remote resource through the same pipeline.
func (s *Service) UploadFromURL(ctx context.Context, rawURL, originalName string, meta Metadata) (*Media, error) {
	data, _, err := s.store.FetchFile(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if originalName == "" {
		originalName = utils.NameFromURL(rawURL)
	}
	return s.Upload(ctx, originalName, data, meta)
}

// Process runs the full pipeline for one media id. It is the unit of work
// a dispatcher worker executes; the pending->processing claim inside makes
// concurrent runs for the same id impossible.
func (s *Service) Process(ctx context.Context, id string) error {
	m, err := s.repo.ClaimProcessing(ctx, id)
	if err != nil {
		return err
	}

	result, err := imageproc.GenerateDerivatives(ctx, m.Data)
	if err != nil {
		s.fail(ctx, m.ID, stageOf(err), err)
		return err
	}

	// A converted HEIC original is stored as the normalized JPEG.
	originalMime, originalName := m.MimeType, m.OriginalName
	if result.Converted {
		originalMime = "image/jpeg"
		originalName = storage.DerivativeName(m.OriginalName, "converted", result.Format)
	}
	derivedMime := "image/" + result.Format

	var stored []*storage.StoredFile
	cleanup := func() {
		for _, f := range stored {
			s.store.DeleteFile(ctx, f.Key)
		}
	}

	original, err := s.store.StoreFile(ctx, result.Original, originalName, m.ID, originalMime)
	if err != nil {
		s.fail(ctx, m.ID, "store_original", err)
		return err
	}
	stored = append(stored, original)

	medium, err := s.store.StoreFile(ctx, result.Medium.Data,
		storage.DerivativeName(m.OriginalName, "medium", result.Format), m.ID, derivedMime)
	if err != nil {
		cleanup()
		s.fail(ctx, m.ID, "store_medium", err)
		return err
	}
	stored = append(stored, medium)

	thumb, err := s.store.StoreFile(ctx, result.Thumbnail.Data,
		storage.DerivativeName(m.OriginalName, "thumb", result.Format), m.ID, derivedMime)
	if err != nil {
		cleanup()
		s.fail(ctx, m.ID, "store_thumbnail", err)
		return err
	}
	stored = append(stored, thumb)

	m.OriginalKey, m.OriginalURL = original.Key, original.URL
	m.MediumKey, m.MediumURL = medium.Key, medium.URL
	m.ThumbKey, m.ThumbURL = thumb.Key, thumb.URL
	m.OriginalWidth, m.OriginalHeight = result.OriginalDimensions.Width, result.OriginalDimensions.Height
	m.MediumWidth, m.MediumHeight = result.Medium.Dimensions.Width, result.Medium.Dimensions.Height
	m.ThumbWidth, m.ThumbHeight = result.Thumbnail.Dimensions.Width, result.Thumbnail.Dimensions.Height
	m.Format = result.Format
	m.Filename = original.Filename

	if err := s.repo.MarkCompleted(ctx, m); err != nil {
		// The record must not stay in processing: nothing can re-claim it
		// there. Roll back the objects and land on failed so Retry applies.
		cleanup()
		s.fail(ctx, m.ID, "mark_completed", err)
		return err
	}

	log.Printf("media processed id=%s format=%s original=%s", m.ID, m.Format, m.OriginalKey)
	return nil
}

// Retry performs the explicit failed->pending transition. The caller
// re-enqueues the id; the run re-enters from the top, including
// re-classification.
func (s *Service) Retry(ctx context.Context, id string) error {
	return s.repo.ResetForRetry(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Media, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateMetadata(ctx context.Context, id string, meta Metadata) error {
	return s.repo.UpdateMetadata(ctx, id, meta)
}

// Delete removes the record and best-effort cleans up the stored objects.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, key := range []string{m.OriginalKey, m.MediumKey, m.ThumbKey} {
		s.store.DeleteFile(ctx, key)
	}
	return nil
}

// PresignUpload issues a direct-upload URL for large files that should not
// route through the application server.
func (s *Service) PresignUpload(ctx context.Context, filename, mimeType string, expires time.Duration) (key, uploadURL string, err error) {
	key = storage.ObjectKey(filename, uuid.NewString(), time.Now())
	uploadURL, err = s.store.GeneratePresignedURL(ctx, key, mimeType, expires)
	if err != nil {
		return "", "", err
	}
	return key, uploadURL, nil
}

func (s *Service) fail(ctx context.Context, id, stage string, cause error) {
	log.Printf("media pipeline_failed id=%s stage=%s error=%q", id, stage, cause)
	if err := s.repo.MarkFailed(ctx, id, stage+": "+cause.Error()); err != nil {
		log.Printf("media mark_failed_error id=%s error=%q", id, err)
	}
}

// stageOf names the pipeline stage for diagnostics; the poll client only
// ever sees the failed flag.
func stageOf(err error) string {
	var decodeErr *imageproc.DecodeError
	var convErr *imageproc.ConversionError
	var resizeErr *imageproc.ResizeError
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &convErr):
		return "convert"
	case errors.As(err, &resizeErr):
		return "resize_" + resizeErr.Preset
	default:
		return "pipeline"
	}
}

func sniffMime(data []byte) string {
	mimeType := http.DetectContentType(data)
	return strings.Split(mimeType, ";")[0]
}
