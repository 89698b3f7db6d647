package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oseayemenre/bookshelf/internal/catalog"
	"github.com/oseayemenre/bookshelf/internal/models"
	"github.com/oseayemenre/bookshelf/internal/store"
)

const maxBodySize = 12 << 20

var (
	errBookNotFound  = errors.New("Book not found")
	errInvalidBookId = errors.New("Invalid book ID")
)

// respondWithStoreError maps store sentinels onto 400/404 and everything
// else onto a 500 carrying only the generic message.
func (a *Api) respondWithStoreError(w http.ResponseWriter, err error, service string, generic string) {
	switch {
	case errors.Is(err, store.ErrInvalidBookId):
		a.logger.Warn(err.Error(), "service", service)
		respondWithError(w, http.StatusBadRequest, errInvalidBookId)
	case errors.Is(err, store.ErrBookNotFound):
		a.logger.Warn(err.Error(), "service", service)
		respondWithError(w, http.StatusNotFound, errBookNotFound)
	default:
		a.logger.Error(err.Error(), "service", service)
		respondWithError(w, http.StatusInternalServerError, errors.New(generic))
	}
}

// rejectReference refuses image_<id> covers. The server keeps no blob
// store, so such a key could never resolve.
func rejectReference(cover *models.CoverImage) error {
	if cover != nil && cover.Kind == models.CoverReference {
		return fmt.Errorf("%w: image references are only valid in the local store", models.ErrInvalidCover)
	}
	return nil
}

func coverReplaced(old *models.CoverImage, next *models.CoverImage) bool {
	if old == nil || next == nil {
		return false
	}
	return *old != *next
}

// HandleGetBooks godoc
//
//	@Summary		List books
//	@Description	List every book, optionally filtered by search text, genre or read status
//	@Tags			books
//	@Produce		json
//	@Param			search		query		string	false	"case-insensitive match on title, author or description"
//	@Param			genre		query		string	false	"exact genre"
//	@Param			finished	query		bool	false	"only books already read"
//	@Success		200			{array}		models.Book
//	@Failure		400			{object}	models.ErrorResponse
//	@Failure		500			{object}	models.ErrorResponse
//	@Router			/books [get]
func (a *Api) HandleGetBooks(w http.ResponseWriter, r *http.Request) {
	query := catalog.Query{
		Search: r.URL.Query().Get("search"),
		Genre:  r.URL.Query().Get("genre"),
	}

	if finished := r.URL.Query().Get("finished"); finished != "" {
		readOnly, err := strconv.ParseBool(finished)
		if err != nil {
			a.logger.Warn("invalid finished query param", "service", "HandleGetBooks")
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("finished must be true or false"))
			return
		}
		query.ReadOnly = readOnly
	}

	books, err := a.store.GetBooks(r.Context())
	if err != nil {
		a.respondWithStoreError(w, err, "HandleGetBooks", "Failed to fetch books")
		return
	}

	if !query.IsZero() {
		books = catalog.SortUnreadFirst(catalog.Filter(books, query))
	}

	respondWithSuccess(w, http.StatusOK, books)
}

// HandleCreateBook godoc
//
//	@Summary		Add a book
//	@Description	Creates a book. An inline cover is compressed and, when an object store is configured, uploaded.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			book	body		models.BookDraft	true	"book to add"
//	@Success		201		{object}	models.Book
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		413		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Router			/books [post]
func (a *Api) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var draft models.BookDraft

	if err := a.decodeJson(w, r, &draft, "HandleCreateBook"); err != nil {
		return
	}

	if err := draft.Validate(); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	if err := rejectReference(draft.CoverImage); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	pending, err := a.covers.Prepare(r.Context(), draft.CoverImage)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("error processing cover: %v", err), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	upload := pending != nil && a.covers.HasObjectStore()

	if pending != nil {
		draft.CoverImage = a.covers.Inline(pending)
	}

	if upload {
		draft.CoverImage = nil
	}

	book, err := a.store.CreateBook(r.Context(), &draft)
	if err != nil {
		a.respondWithStoreError(w, err, "HandleCreateBook", "Failed to create book")
		return
	}

	if upload {
		cover, err := a.covers.Store(r.Context(), book.Id, pending)
		if err == nil {
			err = a.store.UpdateBookCover(r.Context(), book.Id, cover)
		}

		if err != nil {
			a.logger.Error(fmt.Sprintf("error storing cover: %v", err), "service", "HandleCreateBook", "book_id", book.Id)

			if delErr := a.store.DeleteBook(r.Context(), book.Id); delErr != nil {
				a.logger.Error(fmt.Sprintf("error rolling back book: %v", delErr), "service", "HandleCreateBook", "book_id", book.Id)
			}

			respondWithError(w, http.StatusInternalServerError, errors.New("Failed to create book"))
			return
		}

		book.CoverImage = cover
	}

	respondWithSuccess(w, http.StatusCreated, book)
}

// HandleGetBook godoc
//
//	@Summary		Get book
//	@Description	Get book by id
//	@Tags			books
//	@Produce		json
//	@Param			bookId	path		string	true	"book id"
//	@Success		200		{object}	models.Book
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Router			/books/{bookId} [get]
func (a *Api) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookId")

	book, err := a.store.GetBook(r.Context(), id)

	if err != nil {
		a.respondWithStoreError(w, err, "HandleGetBook", "Failed to fetch book")
		return
	}

	respondWithSuccess(w, http.StatusOK, book)
}

// HandleUpdateBook godoc
//
//	@Summary		Update book
//	@Description	Partially update a book. Absent fields are left untouched; updatedAt always moves.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			bookId	path		string				true	"book id"
//	@Param			book	body		models.BookPatch	true	"fields to change"
//	@Success		200		{object}	models.Book
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		413		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Router			/books/{bookId} [put]
func (a *Api) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookId")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var patch models.BookPatch

	if err := a.decodeJson(w, r, &patch, "HandleUpdateBook"); err != nil {
		return
	}

	if err := patch.Validate(); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	if err := rejectReference(patch.CoverImage); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	pending, err := a.covers.Prepare(r.Context(), patch.CoverImage)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("error processing cover: %v", err), "service", "HandleUpdateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	existing, err := a.store.GetBook(r.Context(), id)
	if err != nil {
		a.respondWithStoreError(w, err, "HandleUpdateBook", "Failed to update book")
		return
	}

	// The upload overwrites the object behind the current cover, so it only
	// happens once the record update has gone through.
	upload := pending != nil && a.covers.HasObjectStore()

	if pending != nil {
		patch.CoverImage = a.covers.Inline(pending)
	}

	if upload {
		patch.CoverImage = nil
	}

	book, err := a.store.UpdateBook(r.Context(), id, &patch)
	if err != nil {
		a.respondWithStoreError(w, err, "HandleUpdateBook", "Failed to update book")
		return
	}

	if upload {
		cover, err := a.covers.Store(r.Context(), book.Id, pending)
		if err == nil {
			err = a.store.UpdateBookCover(r.Context(), book.Id, cover)
		}

		if err != nil {
			a.logger.Error(fmt.Sprintf("error storing cover: %v", err), "service", "HandleUpdateBook", "book_id", book.Id)
			respondWithError(w, http.StatusInternalServerError, errors.New("Failed to update book"))
			return
		}

		book.CoverImage = cover
	}

	if coverReplaced(existing.CoverImage, patch.CoverImage) && pending == nil {
		a.covers.Remove(r.Context(), existing.Id, existing.CoverImage)
	}

	respondWithSuccess(w, http.StatusOK, book)
}

// HandleDeleteBook godoc
//
//	@Summary		Delete book
//	@Description	Delete book by id, together with its uploaded cover
//	@Tags			books
//	@Produce		json
//	@Param			bookId	path		string	true	"book id"
//	@Success		200		{object}	models.MessageResponse
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Router			/books/{bookId} [delete]
func (a *Api) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookId")

	existing, err := a.store.GetBook(r.Context(), id)
	if err != nil {
		a.respondWithStoreError(w, err, "HandleDeleteBook", "Failed to delete book")
		return
	}

	if err := a.store.DeleteBook(r.Context(), id); err != nil {
		a.respondWithStoreError(w, err, "HandleDeleteBook", "Failed to delete book")
		return
	}

	a.covers.Remove(r.Context(), existing.Id, existing.CoverImage)

	respondWithSuccess(w, http.StatusOK, models.MessageResponse{Message: "Book deleted successfully"})
}
