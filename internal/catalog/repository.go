package catalog

import (
	"context"
	"errors"

	"github.com/oseayemenre/bookshelf/internal/models"
)

var ErrNotFound = errors.New("book not found")

// Repository is implemented by both the local record store and the remote
// gateway. Callers choose one; they are never combined.
type Repository interface {
	List(ctx context.Context) ([]models.Book, error)
	Create(ctx context.Context, draft models.BookDraft) (*models.Book, error)
	Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Book, error)
}
