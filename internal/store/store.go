package store

import (
	"context"
	"errors"

	"github.com/oseayemenre/bookshelf/internal/models"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrInvalidBookId  = errors.New("invalid book id")
	ErrUnknownBackend = errors.New("unknown database driver")
)

// Store is the server-side system of record for books.
type Store interface {
	GetBooks(ctx context.Context) ([]models.Book, error)
	CreateBook(ctx context.Context, draft *models.BookDraft) (*models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	UpdateBook(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error)
	UpdateBookCover(ctx context.Context, id string, cover *models.CoverImage) error
	DeleteBook(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the store named by driver: "postgres" or "mongo".
func New(ctx context.Context, driver string, conn string, database string) (Store, error) {
	switch driver {
	case "postgres":
		s, err := NewPostgresStore(conn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "mongo":
		return NewMongoStore(ctx, conn, database)
	}

	return nil, ErrUnknownBackend
}
