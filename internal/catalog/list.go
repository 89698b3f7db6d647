package catalog

import (
	"sort"
	"strings"

	"github.com/oseayemenre/bookshelf/internal/models"
)

const PageSize = 8

// Query narrows a book list. Zero values match everything.
type Query struct {
	Search   string
	Genre    string
	ReadOnly bool
}

func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Search) == "" && q.Genre == "" && !q.ReadOnly
}

// Filter keeps books whose title, author or description contain the
// search text (case-insensitive) and whose genre equals q.Genre when set.
func Filter(books []models.Book, q Query) []models.Book {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if q.Genre != "" && b.Genre != q.Genre {
			continue
		}

		if q.ReadOnly && !b.IsRead {
			continue
		}

		if search != "" && !matches(b, search) {
			continue
		}

		out = append(out, b)
	}

	return out
}

func matches(b models.Book, search string) bool {
	for _, field := range []string{b.Title, b.Author, b.Description} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// SortUnreadFirst returns a copy with unread books ahead of read ones.
// Relative order inside each group is kept.
func SortUnreadFirst(books []models.Book) []models.Book {
	out := make([]models.Book, len(books))
	copy(out, books)

	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].IsRead && out[j].IsRead
	})

	return out
}

type Page struct {
	Books      []models.Book
	Number     int
	TotalPages int
	Total      int
}

// Paginate slices out the 1-based page. Out of range pages are clamped
// rather than reported as errors.
func Paginate(books []models.Book, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}

	total := len(books)
	totalPages := (total + size - 1) / size

	page = ClampPage(page, totalPages)

	start := (page - 1) * size
	if start > total {
		start = total
	}

	end := start + size
	if end > total {
		end = total
	}

	return Page{
		Books:      books[start:end],
		Number:     page,
		TotalPages: totalPages,
		Total:      total,
	}
}

func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Genres lists distinct non-empty genres in alphabetical order.
func Genres(books []models.Book) []string {
	seen := make(map[string]struct{})
	genres := []string{}

	for _, b := range books {
		if b.Genre == "" {
			continue
		}
		if _, ok := seen[b.Genre]; ok {
			continue
		}
		seen[b.Genre] = struct{}{}
		genres = append(genres, b.Genre)
	}

	sort.Strings(genres)
	return genres
}

// DefaultGenres is the fixed list offered when adding a book.
var DefaultGenres = []string{
	"Fiction",
	"Non-Fiction",
	"Mystery",
	"Science Fiction",
	"Fantasy",
	"Romance",
	"Thriller",
	"Horror",
	"Biography",
	"History",
	"Self-Help",
	"Poetry",
	"Drama",
	"Comedy",
	"Adventure",
	"Crime",
	"Young Adult",
	"Children's",
	"Other",
}
