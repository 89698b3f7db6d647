package models

import (
	"time"
)

// Book is the only entity the shelf tracks.
type Book struct {
	Id          string      `json:"id"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Description string      `json:"description,omitempty"`
	Genre       string      `json:"genre,omitempty"`
	CoverImage  *CoverImage `json:"coverImage,omitempty"`
	Rating      *float64    `json:"rating,omitempty"`
	IsRead      bool        `json:"isRead"`
	Created_at  time.Time   `json:"createdAt"`
	Updated_at  time.Time   `json:"updatedAt"`
}

// BookDraft is the input of a create operation. Id and timestamps are
// assigned by whichever store persists it.
type BookDraft struct {
	Title       string      `json:"title" validate:"required,max=300"`
	Author      string      `json:"author" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	Genre       string      `json:"genre" validate:"max=100"`
	CoverImage  *CoverImage `json:"coverImage"`
	Rating      *float64    `json:"rating" validate:"omitnil,gte=0,lte=5"`
	IsRead      bool        `json:"isRead"`
}

// BookPatch is a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title       *string     `json:"title" validate:"omitnil,min=1,max=300"`
	Author      *string     `json:"author" validate:"omitnil,min=1,max=200"`
	Description *string     `json:"description" validate:"omitnil,max=5000"`
	Genre       *string     `json:"genre" validate:"omitnil,max=100"`
	CoverImage  *CoverImage `json:"coverImage"`
	Rating      *float64    `json:"rating" validate:"omitnil,gte=0,lte=5"`
	IsRead      *bool       `json:"isRead"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ConnectionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewBook materialises a draft into a record with the given id. Both
// timestamps are set to now.
func (d *BookDraft) NewBook(id string, now time.Time) *Book {
	book := &Book{
		Id:          id,
		Title:       d.Title,
		Author:      d.Author,
		Description: d.Description,
		Genre:       d.Genre,
		Rating:      d.Rating,
		IsRead:      d.IsRead,
		Created_at:  now,
		Updated_at:  now,
	}

	if d.CoverImage != nil && !d.CoverImage.IsZero() {
		cover := *d.CoverImage
		book.CoverImage = &cover
	}

	return book
}

// Apply merges the patch onto book and always refreshes Updated_at.
// An empty cover in the patch clears the book's cover.
func (p *BookPatch) Apply(book *Book, now time.Time) {
	if p.Title != nil {
		book.Title = *p.Title
	}

	if p.Author != nil {
		book.Author = *p.Author
	}

	if p.Description != nil {
		book.Description = *p.Description
	}

	if p.Genre != nil {
		book.Genre = *p.Genre
	}

	if p.CoverImage != nil {
		if p.CoverImage.IsZero() {
			book.CoverImage = nil
		} else {
			cover := *p.CoverImage
			book.CoverImage = &cover
		}
	}

	if p.Rating != nil {
		rating := *p.Rating
		book.Rating = &rating
	}

	if p.IsRead != nil {
		book.IsRead = *p.IsRead
	}

	book.Updated_at = now
}
