package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oseayemenre/bookshelf/internal/models"
	"golang.org/x/sync/errgroup"
)

const deleteConcurrency = 4

// View is the in-memory state behind a book list screen: the full list
// plus the current query, page, selection and drag source.
type View struct {
	books      []models.Book
	query      Query
	page       int
	pageSize   int
	selection  *Selection
	dragSource string
}

func NewView(books []models.Book) *View {
	return &View{
		books:     books,
		page:      1,
		pageSize:  PageSize,
		selection: NewSelection(),
	}
}

func (v *View) Books() []models.Book {
	return v.books
}

// SetBooks replaces the list and drops selected ids that no longer exist.
func (v *View) SetBooks(books []models.Book) {
	v.books = books
	v.selection.Retain(idSet(books))
}

func (v *View) Query() Query {
	return v.query
}

func (v *View) SetQuery(q Query) {
	v.query = q
}

func (v *View) SetSearch(search string) {
	v.query.Search = search
}

func (v *View) SetGenre(genre string) {
	v.query.Genre = genre
}

func (v *View) SetReadOnly(readOnly bool) {
	v.query.ReadOnly = readOnly
}

func (v *View) SetPage(page int) {
	v.page = page
}

func (v *View) Selection() *Selection {
	return v.selection
}

// Filtered is the query applied to the full list with unread books first.
func (v *View) Filtered() []models.Book {
	return SortUnreadFirst(Filter(v.books, v.query))
}

// Visible returns the current page. The stored page index is pulled back
// into range when the filtered set has shrunk.
func (v *View) Visible() Page {
	p := Paginate(v.Filtered(), v.page, v.pageSize)
	v.page = p.Number
	return p
}

// SelectAll selects every book that passes the current query.
func (v *View) SelectAll() {
	filtered := v.Filtered()
	ids := make([]string, len(filtered))
	for i, b := range filtered {
		ids[i] = b.Id
	}
	v.selection.Set(ids...)
}

func (v *View) DeselectAll() {
	v.selection.Clear()
}

// SelectedBooks returns selected books in list order.
func (v *View) SelectedBooks() []models.Book {
	out := []models.Book{}
	for _, b := range v.books {
		if v.selection.Has(b.Id) {
			out = append(out, b)
		}
	}
	return out
}

type BulkResult struct {
	Deleted    []string
	Missing    []string
	Failed     map[string]error
	Reconciled bool
}

func (r *BulkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.Failed))
	for id, err := range r.Failed {
		errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
	}
	return errors.Join(errs...)
}

// DeleteSelected deletes every selected book independently. Successes leave
// memory and the selection; failed ids stay selected. After any failure
// the list is re-fetched so memory matches the store again.
func (v *View) DeleteSelected(ctx context.Context, repo Repository) (*BulkResult, error) {
	ids := v.selection.IDs()
	result := &BulkResult{Failed: make(map[string]error)}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			ok, err := repo.Delete(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				result.Failed[id] = err
			case ok:
				result.Deleted = append(result.Deleted, id)
			default:
				result.Missing = append(result.Missing, id)
			}
			return nil
		})
	}

	_ = g.Wait()

	gone := make(map[string]struct{}, len(result.Deleted)+len(result.Missing))
	for _, id := range result.Deleted {
		gone[id] = struct{}{}
	}
	for _, id := range result.Missing {
		gone[id] = struct{}{}
	}

	remaining := make([]models.Book, 0, len(v.books))
	for _, b := range v.books {
		if _, ok := gone[b.Id]; !ok {
			remaining = append(remaining, b)
		}
	}
	v.books = remaining
	v.selection.Remove(result.Deleted...)
	v.selection.Remove(result.Missing...)

	if len(result.Failed) > 0 {
		books, err := repo.List(ctx)
		if err != nil {
			return result, errors.Join(result.Err(), fmt.Errorf("error re-fetching books: %w", err))
		}
		v.SetBooks(books)
		result.Reconciled = true
	}

	return result, result.Err()
}

func (v *View) DragStart(id string) {
	v.dragSource = id
}

func (v *View) DragSource() string {
	return v.dragSource
}

// Drop computes the order produced by moving the drag source onto
// targetID. The result is intent only: it is not written back to the view
// or to any store. ok is false when there is nothing to move.
func (v *View) Drop(targetID string) ([]models.Book, bool) {
	source := v.dragSource
	v.dragSource = ""

	if source == "" || source == targetID {
		return nil, false
	}

	from, to := -1, -1
	for i, b := range v.books {
		if b.Id == source {
			from = i
		}
		if b.Id == targetID {
			to = i
		}
	}

	if from == -1 || to == -1 {
		return nil, false
	}

	reordered := make([]models.Book, 0, len(v.books))
	reordered = append(reordered, v.books[:from]...)
	reordered = append(reordered, v.books[from+1:]...)

	moved := v.books[from]
	reordered = append(reordered[:to], append([]models.Book{moved}, reordered[to:]...)...)

	return reordered, true
}

func idSet(books []models.Book) map[string]struct{} {
	set := make(map[string]struct{}, len(books))
	for _, b := range books {
		set[b.Id] = struct{}{}
	}
	return set
}
