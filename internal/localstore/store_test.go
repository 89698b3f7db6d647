package localstore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oseayemenre/bookshelf/internal/catalog"
	"github.com/oseayemenre/bookshelf/internal/imaging"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompressor struct {
	err   error
	calls int
}

func (c *fakeCompressor) CompressDataURI(ctx context.Context, uri string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "data:image/jpeg;base64,Y29tcHJlc3NlZA==", nil
}

func newTestStore(kv KV, compressor Compressor) *Store {
	s := New(kv, compressor, logger.Discard())

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return s
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryKV(), &fakeCompressor{})

	created, err := s.Create(ctx, models.BookDraft{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	got, err := s.GetByID(ctx, created.Id)
	require.NoError(t, err)

	assert.NotEmpty(t, got.Id)
	assert.False(t, got.IsRead)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Genre)
	assert.Nil(t, got.CoverImage)
	assert.Nil(t, got.Rating)
	assert.False(t, got.Created_at.IsZero())
	assert.True(t, got.Created_at.Equal(got.Updated_at))
}

func TestCreateRejectsBadRating(t *testing.T) {
	kv := NewMemoryKV()
	s := newTestStore(kv, &fakeCompressor{})

	_, err := s.Create(context.Background(), models.BookDraft{Title: "Dune", Author: "Frank Herbert", Rating: ptr(7.0)})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 0, kv.Len())
}

func TestCreateStoresInlineCoverAsBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	compressor := &fakeCompressor{}
	s := newTestStore(kv, compressor)

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, compressor.calls)
	require.NotNil(t, created.CoverImage)
	assert.Equal(t, models.CoverReference, created.CoverImage.Kind)
	assert.Equal(t, "image_"+created.Id, created.CoverImage.Value)

	blob, ok, err := kv.Get(ctx, "image_"+created.Id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,Y29tcHJlc3NlZA==", blob)

	got, err := s.GetByID(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, models.CoverInline, got.CoverImage.Kind)
	assert.Equal(t, blob, got.CoverImage.Value)

	listed, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CoverReference, listed[0].CoverImage.Kind)
}

func TestCreateSurfacesCompressionFailure(t *testing.T) {
	s := newTestStore(NewMemoryKV(), &fakeCompressor{err: imaging.ErrDecode})

	_, err := s.Create(context.Background(), models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.ErrorIs(t, err, imaging.ErrDecode)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv, &fakeCompressor{})

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		Genre:      "Sci-Fi",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.Id, models.BookPatch{IsRead: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.Equal(t, "Sci-Fi", updated.Genre)
	assert.True(t, updated.Updated_at.After(created.Updated_at))
	assert.True(t, created.Created_at.Equal(updated.Created_at))

	updated, err = s.Update(ctx, created.Id, models.BookPatch{CoverImage: models.URLCover("https://example.com/dune.jpg")})
	require.NoError(t, err)
	assert.Equal(t, models.CoverURL, updated.CoverImage.Kind)

	_, ok, err := kv.Get(ctx, "image_"+created.Id)
	require.NoError(t, err)
	assert.False(t, ok, "replaced blob should be removed")

	_, err = s.Update(ctx, "missing", models.BookPatch{})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = s.Update(ctx, created.Id, models.BookPatch{Rating: ptr(7.0)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeleteCascadesBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv, &fakeCompressor{})

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	ok, err := s.Delete(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := kv.Get(ctx, "image_"+created.Id)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.GetByID(ctx, created.Id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	ok, err = s.Delete(ctx, created.Id)
	require.NoError(t, err)
	assert.False(t, ok)
}

type unwritableKV struct {
	*MemoryKV
	readOnly bool
}

func (u *unwritableKV) Set(ctx context.Context, key string, value string) error {
	if u.readOnly {
		return errors.New("disk full")
	}
	return u.MemoryKV.Set(ctx, key, value)
}

func TestDeleteKeepsBlobWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	kv := &unwritableKV{MemoryKV: NewMemoryKV()}
	s := newTestStore(kv, &fakeCompressor{})

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	kv.readOnly = true

	ok, err := s.Delete(ctx, created.Id)
	require.Error(t, err)
	assert.False(t, ok)

	_, found, err := kv.Get(ctx, "image_"+created.Id)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := s.GetByID(ctx, created.Id)
	require.NoError(t, err)
	require.NotNil(t, got.CoverImage)
	assert.Equal(t, models.CoverInline, got.CoverImage.Kind)
}

func TestListToleratesCorruptCollection(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, BooksKey, "{not json"))

	s := newTestStore(kv, &fakeCompressor{})

	books, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

type failingKV struct {
	*MemoryKV
}

func (f failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func TestListSurfacesKVErrors(t *testing.T) {
	s := newTestStore(failingKV{NewMemoryKV()}, &fakeCompressor{})

	_, err := s.List(context.Background())
	assert.Error(t, err)
}

func TestDanglingReferenceIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv, &fakeCompressor{})

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover("data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)
	require.NoError(t, kv.Remove(ctx, "image_"+created.Id))

	got, err := s.GetByID(ctx, created.Id)
	require.NoError(t, err)
	assert.Nil(t, got.CoverImage)
}

func TestStoreWithRealCompressor(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv, imaging.NewCompressor())

	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	for y := 0; y < 500; y++ {
		for x := 0; x < 1000; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	created, err := s.Create(ctx, models.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CoverImage: models.InlineCover(imaging.DataURI("image/png", buf.Bytes())),
	})
	require.NoError(t, err)

	got, err := s.GetByID(ctx, created.Id)
	require.NoError(t, err)

	mime, data, err := imaging.ParseDataURI(got.CoverImage.Value)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestFileKVPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "books.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)

	s := newTestStore(kv, &fakeCompressor{})
	created, err := s.Create(ctx, models.BookDraft{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	reopened, err := NewFileKV(path)
	require.NoError(t, err)

	got, err := newTestStore(reopened, &fakeCompressor{}).GetByID(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	require.NoError(t, reopened.Remove(ctx, BooksKey))
	_, ok, err := reopened.Get(ctx, BooksKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKVRecoversCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	assert.Equal(t, path+".corrupt", kv.Recovered())

	backup, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))

	books, err := newTestStore(kv, &fakeCompressor{}).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	require.NoError(t, kv.Set(ctx, "k", "v"))

	reopened, err := NewFileKV(path)
	require.NoError(t, err)
	assert.Empty(t, reopened.Recovered())

	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSQLiteKV(t *testing.T) {
	ctx := context.Background()

	kv, err := NewSQLiteKV(ctx, filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "a", "2"))

	v, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, kv.Remove(ctx, "a"))
	_, ok, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	s := newTestStore(kv, &fakeCompressor{})
	created, err := s.Create(ctx, models.BookDraft{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	books, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, created.Id, books[0].Id)
}

func TestBulkDeleteThroughView(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryKV(), &fakeCompressor{}, logger.Discard())

	ids := []string{}
	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		book, err := s.Create(ctx, models.BookDraft{Title: title, Author: "someone"})
		require.NoError(t, err)
		ids = append(ids, book.Id)
	}

	books, err := s.List(ctx)
	require.NoError(t, err)

	view := catalog.NewView(books)
	view.Selection().Set(ids[:7]...)

	result, err := view.DeleteSelected(ctx, s)
	require.NoError(t, err)
	assert.Len(t, result.Deleted, 7)

	remaining, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
	assert.Len(t, view.Books(), 3)
}
