package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oseayemenre/bookshelf/internal/imaging"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/models"
	"github.com/oseayemenre/bookshelf/internal/store"
)

const MaxCoverSize = 8 << 20

var ErrCoverTooLarge = errors.New("cover image too large")

type Compressor interface {
	Compress(ctx context.Context, data []byte) ([]byte, error)
}

// Service turns inline covers into compressed JPEGs and, when an object
// store is configured, into uploaded URLs.
type Service struct {
	compressor Compressor
	objects    store.ObjectStore
	logger     logger.Logger
}

// New builds a Service. objects may be nil, in which case compressed
// covers stay inline.
func New(compressor Compressor, objects store.ObjectStore, logger logger.Logger) *Service {
	return &Service{
		compressor: compressor,
		objects:    objects,
		logger:     logger,
	}
}

// Pending is a compressed cover waiting for its book id.
type Pending struct {
	data []byte
}

func (p *Pending) Bytes() []byte {
	return p.data
}

// Prepare compresses an inline cover. Other kinds need no processing and
// yield a nil Pending. Undecodable payloads wrap models.ErrValidation.
func (s *Service) Prepare(ctx context.Context, cover *models.CoverImage) (*Pending, error) {
	if cover == nil || cover.Kind != models.CoverInline {
		return nil, nil
	}

	_, data, err := imaging.ParseDataURI(cover.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	if len(data) > MaxCoverSize {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, ErrCoverTooLarge)
	}

	compressed, err := s.compressor.Compress(ctx, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	return &Pending{data: compressed}, nil
}

func (s *Service) HasObjectStore() bool {
	return s.objects != nil
}

// Inline is the cover stored when no upload happens.
func (s *Service) Inline(p *Pending) *models.CoverImage {
	return models.InlineCover(imaging.DataURI("image/jpeg", p.data))
}

// Store uploads the compressed cover under bookId and returns the cover to
// persist. Without an object store the compressed payload stays inline.
func (s *Service) Store(ctx context.Context, bookId string, p *Pending) (*models.CoverImage, error) {
	if s.objects == nil {
		return s.Inline(p), nil
	}

	url, err := s.objects.UploadFile(ctx, bytes.NewReader(p.data), bookId)
	if err != nil {
		return nil, err
	}

	return models.URLCover(url), nil
}

// Remove deletes the uploaded object behind cover. Failures are logged
// only; the book itself is already gone.
func (s *Service) Remove(ctx context.Context, bookId string, cover *models.CoverImage) {
	if s.objects == nil || cover == nil || cover.Kind != models.CoverURL {
		return
	}

	if err := s.objects.DeleteFile(ctx, bookId); err != nil {
		s.logger.Warn(fmt.Sprintf("error deleting cover object: %v", err), "service", "covers.Remove", "book_id", bookId)
	}
}

// FromArg turns a CLI argument into a cover: URLs pass through, anything
// else is read as an image file and inlined.
func FromArg(arg string) (*models.CoverImage, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "data:image/") {
		cover, err := models.ParseCover(arg)
		if err != nil {
			return nil, err
		}
		return &cover, nil
	}

	return FromFile(arg)
}

func FromFile(path string) (*models.CoverImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading cover: %w", err)
	}

	if len(data) > MaxCoverSize {
		return nil, ErrCoverTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s", imaging.ErrNotImage, path, mtype.String())
	}

	return models.InlineCover(imaging.DataURI(mtype.String(), data)), nil
}
