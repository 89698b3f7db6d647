package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/oseayemenre/bookshelf/internal/models"
)

type PostgresStore struct {
	*sql.DB
}

func NewPostgresStore(conn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", conn)

	if err != nil {
		return nil, fmt.Errorf("error connecting to db: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging db: %v", err)
	}

	return &PostgresStore{
		DB: db,
	}, nil
}

const schema = `
		CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
			author TEXT NOT NULL CHECK (length(btrim(author)) > 0),
			description TEXT NOT NULL DEFAULT '',
			genre TEXT NOT NULL DEFAULT '',
			cover_kind TEXT NOT NULL DEFAULT '',
			cover_value TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION CHECK (rating >= 0 AND rating <= 5),
			is_read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating books table: %v", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

const bookColumns = `id, title, author, description, genre, cover_kind, cover_value, rating, is_read, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		book       models.Book
		id         uuid.UUID
		coverKind  string
		coverValue string
		rating     sql.NullFloat64
	)

	if err := row.Scan(
		&id,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.Genre,
		&coverKind,
		&coverValue,
		&rating,
		&book.IsRead,
		&book.Created_at,
		&book.Updated_at,
	); err != nil {
		return nil, err
	}

	book.Id = id.String()

	if coverValue != "" {
		book.CoverImage = &models.CoverImage{Kind: models.CoverKind(coverKind), Value: coverValue}
	}

	if rating.Valid {
		r := rating.Float64
		book.Rating = &r
	}

	return &book, nil
}

func coverColumns(cover *models.CoverImage) (string, string) {
	if cover == nil || cover.IsZero() {
		return "", ""
	}
	return string(cover.Kind), cover.Value
}

func parseBookId(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidBookId
	}
	return parsed, nil
}

func (s *PostgresStore) GetBooks(ctx context.Context) ([]models.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books ORDER BY created_at DESC;`, bookColumns)

	rows, err := s.DB.QueryContext(ctx, query)

	if err != nil {
		return nil, fmt.Errorf("error getting books: %v", err)
	}

	defer rows.Close()

	books := []models.Book{}

	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning book: %v", err)
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %v", err)
	}

	return books, nil
}

func (s *PostgresStore) CreateBook(ctx context.Context, draft *models.BookDraft) (*models.Book, error) {
	book := draft.NewBook(uuid.New().String(), time.Now().UTC())
	coverKind, coverValue := coverColumns(book.CoverImage)

	query := fmt.Sprintf(`
			INSERT INTO books (id, title, author, description, genre, cover_kind, cover_value, rating, is_read, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING %s;
	`, bookColumns)

	row := s.DB.QueryRowContext(ctx, query,
		book.Id,
		book.Title,
		book.Author,
		book.Description,
		book.Genre,
		coverKind,
		coverValue,
		book.Rating,
		book.IsRead,
		book.Created_at,
		book.Updated_at,
	)

	created, err := scanBook(row)
	if err != nil {
		return nil, fmt.Errorf("error inserting book: %v", err)
	}

	return created, nil
}

func (s *PostgresStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	bookId, err := parseBookId(id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1;`, bookColumns)

	book, err := scanBook(s.DB.QueryRowContext(ctx, query, bookId))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}

		return nil, fmt.Errorf("error scanning book: %v", err)
	}

	return book, nil
}

// UpdateBook writes only the fields present in patch. updated_at is always
// refreshed, so an empty patch is still a write.
func (s *PostgresStore) UpdateBook(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error) {
	bookId, err := parseBookId(id)
	if err != nil {
		return nil, err
	}

	index := 0
	clauses := []string{}
	arguments := []interface{}{}

	set := func(column string, value any) {
		index++
		clauses = append(clauses, fmt.Sprintf("%s=$%d", column, index))
		arguments = append(arguments, value)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}

	if patch.Author != nil {
		set("author", *patch.Author)
	}

	if patch.Description != nil {
		set("description", *patch.Description)
	}

	if patch.Genre != nil {
		set("genre", *patch.Genre)
	}

	if patch.CoverImage != nil {
		kind, value := coverColumns(patch.CoverImage)
		set("cover_kind", kind)
		set("cover_value", value)
	}

	if patch.Rating != nil {
		set("rating", *patch.Rating)
	}

	if patch.IsRead != nil {
		set("is_read", *patch.IsRead)
	}

	set("updated_at", time.Now().UTC())

	arguments = append(arguments, bookId)

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d RETURNING %s;`, strings.Join(clauses, ","), index+1, bookColumns)

	book, err := scanBook(s.DB.QueryRowContext(ctx, query, arguments...))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}

		return nil, fmt.Errorf("error updating book: %v", err)
	}

	return book, nil
}

func (s *PostgresStore) UpdateBookCover(ctx context.Context, id string, cover *models.CoverImage) error {
	bookId, err := parseBookId(id)
	if err != nil {
		return err
	}

	kind, value := coverColumns(cover)

	query := `
			UPDATE books
			SET cover_kind = $1, cover_value = $2
			WHERE id = $3;
	`

	res, err := s.DB.ExecContext(ctx, query, kind, value, bookId)

	if err != nil {
		return fmt.Errorf("error updating book cover: %v", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteBook(ctx context.Context, id string) error {
	bookId, err := parseBookId(id)
	if err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM books WHERE id = $1;`, bookId)

	if err != nil {
		return fmt.Errorf("error deleting book: %v", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting book: %v", err)
	}

	if n == 0 {
		return ErrBookNotFound
	}

	return nil
}
