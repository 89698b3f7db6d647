package api

import (
	"context"
	"io"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oseayemenre/bookshelf/internal/covers"
	"github.com/oseayemenre/bookshelf/internal/models"
	"github.com/oseayemenre/bookshelf/internal/store"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, args ...any)  {}
func (l *testLogger) Error(msg string, args ...any) {}
func (l *testLogger) Warn(msg string, args ...any)  {}
func (l *testLogger) Debug(msg string, args ...any) {}

type testCompressor struct {
	compressFunc func(ctx context.Context, data []byte) ([]byte, error)
}

func (c *testCompressor) Compress(ctx context.Context, data []byte) ([]byte, error) {
	if c.compressFunc != nil {
		return c.compressFunc(ctx, data)
	}
	return []byte("compressed"), nil
}

type testObjectStore struct {
	uploadFileFunc func(ctx context.Context, file io.Reader, id string) (string, error)
	deleteFileFunc func(ctx context.Context, id string) error
}

func (s *testObjectStore) UploadFile(ctx context.Context, file io.Reader, id string) (string, error) {
	if s.uploadFileFunc != nil {
		return s.uploadFileFunc(ctx, file, id)
	}
	return "http://mock-url.com/" + id + ".jpg", nil
}

func (s *testObjectStore) DeleteFile(ctx context.Context, id string) error {
	if s.deleteFileFunc != nil {
		return s.deleteFileFunc(ctx, id)
	}
	return nil
}

type testStore struct {
	getBooksFunc        func(ctx context.Context) ([]models.Book, error)
	createBookFunc      func(ctx context.Context, draft *models.BookDraft) (*models.Book, error)
	getBookFunc         func(ctx context.Context, id string) (*models.Book, error)
	updateBookFunc      func(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error)
	updateBookCoverFunc func(ctx context.Context, id string, cover *models.CoverImage) error
	deleteBookFunc      func(ctx context.Context, id string) error
	pingFunc            func(ctx context.Context) error
}

func (s *testStore) GetBooks(ctx context.Context) ([]models.Book, error) {
	if s.getBooksFunc != nil {
		return s.getBooksFunc(ctx)
	}
	return []models.Book{}, nil
}

func (s *testStore) CreateBook(ctx context.Context, draft *models.BookDraft) (*models.Book, error) {
	if s.createBookFunc != nil {
		return s.createBookFunc(ctx, draft)
	}
	return draft.NewBook(uuid.New().String(), time.Now()), nil
}

func (s *testStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if s.getBookFunc != nil {
		return s.getBookFunc(ctx, id)
	}
	return &models.Book{Id: id, Title: "test title", Author: "test author"}, nil
}

func (s *testStore) UpdateBook(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error) {
	if s.updateBookFunc != nil {
		return s.updateBookFunc(ctx, id, patch)
	}
	book := &models.Book{Id: id, Title: "test title", Author: "test author"}
	patch.Apply(book, time.Now())
	return book, nil
}

func (s *testStore) UpdateBookCover(ctx context.Context, id string, cover *models.CoverImage) error {
	if s.updateBookCoverFunc != nil {
		return s.updateBookCoverFunc(ctx, id, cover)
	}
	return nil
}

func (s *testStore) DeleteBook(ctx context.Context, id string) error {
	if s.deleteBookFunc != nil {
		return s.deleteBookFunc(ctx, id)
	}
	return nil
}

func (s *testStore) Ping(ctx context.Context) error {
	if s.pingFunc != nil {
		return s.pingFunc(ctx)
	}
	return nil
}

func (s *testStore) Close() error {
	return nil
}

var _ store.Store = (*testStore)(nil)

// newTestApi wires a router so chi URL params resolve. objects may be nil.
func newTestApi(s *testStore, objects store.ObjectStore) (*Api, *chi.Mux) {
	r := chi.NewRouter()
	logger := &testLogger{}

	a := New(r, logger, covers.New(&testCompressor{}, objects, logger), s, nil)
	a.RegisterRoutes()

	return a, r
}
