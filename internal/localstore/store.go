package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oseayemenre/bookshelf/internal/catalog"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/models"
)

// BooksKey holds the whole collection as one JSON array.
const BooksKey = "books"

type Compressor interface {
	CompressDataURI(ctx context.Context, uri string) (string, error)
}

// Store is the offline record store. Every operation reads the whole list,
// changes it and writes it back. Writes through one Store are serialized;
// two processes sharing the same backing file still lose updates.
type Store struct {
	mu         sync.Mutex
	kv         KV
	compressor Compressor
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
}

var _ catalog.Repository = (*Store)(nil)

func New(kv KV, compressor Compressor, logger logger.Logger) *Store {
	return &Store{
		kv:         kv,
		compressor: compressor,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// List returns covers as stored. An unreadable collection is treated as
// empty.
func (s *Store) List(ctx context.Context) ([]models.Book, error) {
	raw, ok, err := s.kv.Get(ctx, BooksKey)
	if err != nil {
		return nil, fmt.Errorf("error reading books: %w", err)
	}

	if !ok || raw == "" {
		return []models.Book{}, nil
	}

	var books []models.Book
	if err := json.Unmarshal([]byte(raw), &books); err != nil {
		s.logger.Warn(fmt.Sprintf("error parsing stored books: %v", err), "service", "localstore.List")
		return []models.Book{}, nil
	}

	if books == nil {
		books = []models.Book{}
	}

	return books, nil
}

func (s *Store) save(ctx context.Context, books []models.Book) error {
	raw, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("error encoding books: %w", err)
	}

	if err := s.kv.Set(ctx, BooksKey, string(raw)); err != nil {
		return fmt.Errorf("error writing books: %w", err)
	}

	return nil
}

func (s *Store) Create(ctx context.Context, draft models.BookDraft) (*models.Book, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	book := draft.NewBook(s.newID(), s.now())

	storedBlob := false
	if book.CoverImage != nil && book.CoverImage.Kind == models.CoverInline {
		if err := s.storeBlob(ctx, book); err != nil {
			return nil, err
		}
		storedBlob = true
	}

	books = append(books, *book)

	if err := s.save(ctx, books); err != nil {
		if storedBlob {
			s.removeBlob(ctx, book.Id)
		}
		return nil, err
	}

	return book, nil
}

// Update merges patch into the stored record. A missing id yields
// catalog.ErrNotFound.
func (s *Store) Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	index := indexOf(books, id)
	if index == -1 {
		return nil, catalog.ErrNotFound
	}

	book := books[index]
	hadBlob := isReference(book.CoverImage)

	patch.Apply(&book, s.now())

	if book.CoverImage != nil && book.CoverImage.Kind == models.CoverInline {
		if err := s.storeBlob(ctx, &book); err != nil {
			return nil, err
		}
	}

	books[index] = book

	if err := s.save(ctx, books); err != nil {
		return nil, err
	}

	if hadBlob && !isReference(book.CoverImage) {
		s.removeBlob(ctx, id)
	}

	return &book, nil
}

// Delete removes the record and its image blob. It reports false when no
// record had the id.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books, err := s.List(ctx)
	if err != nil {
		return false, err
	}

	index := indexOf(books, id)
	if index == -1 {
		return false, nil
	}

	books = append(books[:index], books[index+1:]...)

	if err := s.save(ctx, books); err != nil {
		return false, err
	}

	s.removeBlob(ctx, id)

	return true, nil
}

// GetByID returns the record with its reference cover resolved into the
// stored inline payload.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Book, error) {
	books, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	index := indexOf(books, id)
	if index == -1 {
		return nil, catalog.ErrNotFound
	}

	book := books[index]
	if err := s.ResolveCover(ctx, &book); err != nil {
		return nil, err
	}

	return &book, nil
}

// ResolveCover swaps a reference cover for its blob. A reference whose blob
// is missing is dropped.
func (s *Store) ResolveCover(ctx context.Context, book *models.Book) error {
	if !isReference(book.CoverImage) {
		return nil
	}

	blob, ok, err := s.kv.Get(ctx, book.CoverImage.Value)
	if err != nil {
		return fmt.Errorf("error reading cover: %w", err)
	}

	if !ok || blob == "" {
		book.CoverImage = nil
		return nil
	}

	book.CoverImage = models.InlineCover(blob)
	return nil
}

func (s *Store) storeBlob(ctx context.Context, book *models.Book) error {
	compressed, err := s.compressor.CompressDataURI(ctx, book.CoverImage.Value)
	if err != nil {
		return fmt.Errorf("%w: cover image: %w", models.ErrValidation, err)
	}

	if err := s.kv.Set(ctx, models.ReferenceKey(book.Id), compressed); err != nil {
		return fmt.Errorf("error writing cover: %w", err)
	}

	book.CoverImage = models.ReferenceCover(book.Id)
	return nil
}

func (s *Store) removeBlob(ctx context.Context, id string) {
	if err := s.kv.Remove(ctx, models.ReferenceKey(id)); err != nil {
		s.logger.Warn(fmt.Sprintf("error removing cover: %v", err), "service", "localstore", "book_id", id)
	}
}

func indexOf(books []models.Book, id string) int {
	for i, b := range books {
		if b.Id == id {
			return i
		}
	}
	return -1
}

func isReference(c *models.CoverImage) bool {
	return c != nil && c.Kind == models.CoverReference
}
