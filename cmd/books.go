package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oseayemenre/bookshelf/internal/catalog"
	"github.com/oseayemenre/bookshelf/internal/config"
	"github.com/oseayemenre/bookshelf/internal/covers"
	"github.com/oseayemenre/bookshelf/internal/export"
	"github.com/oseayemenre/bookshelf/internal/gateway"
	"github.com/oseayemenre/bookshelf/internal/localstore"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/models"
)

type booksOptions struct {
	root   *rootOptions
	apiURL string
	local  string
}

// session is an open repository plus whatever needs closing afterwards.
type session struct {
	repo    catalog.Repository
	gateway *gateway.Client
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// open picks the local store when --local is set, the REST gateway otherwise.
// A .db suffix selects the SQLite backend, anything else a JSON file.
func (o *booksOptions) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(o.root.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logger.New(os.Stderr, "dev", version, cfg.Debug)
	if err != nil {
		return nil, err
	}

	if o.local != "" {
		var kv localstore.KV
		s := &session{}

		if strings.HasSuffix(o.local, ".db") {
			sqlite, err := localstore.NewSQLiteKV(ctx, o.local)
			if err != nil {
				return nil, err
			}
			kv = sqlite
			s.closers = append(s.closers, sqlite)
		} else {
			file, err := localstore.NewFileKV(o.local)
			if err != nil {
				return nil, err
			}
			if backup := file.Recovered(); backup != "" {
				logger.Warn("store file was corrupt, starting empty", "service", "books", "backup", backup)
			}
			kv = file
		}

		s.repo = localstore.New(kv, newCompressor(cfg), logger)
		return s, nil
	}

	baseURL := o.apiURL
	if baseURL == "" {
		baseURL = cfg.Api_url
	}

	client := gateway.NewClient(baseURL, &gateway.LoggingTransport{Base: http.DefaultTransport, Logger: logger})

	return &session{repo: client, gateway: client}, nil
}

func BooksCommand(ctx context.Context, root *rootOptions) *cobra.Command {
	opts := &booksOptions{root: root}

	cmd := &cobra.Command{
		Use:   "books",
		Short: "manage books through the api or a local store",
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "api base url (defaults to API_URL)")
	cmd.PersistentFlags().StringVar(&opts.local, "local", "", "use a local store file instead of the api (.db for sqlite)")

	cmd.AddCommand(
		listCommand(ctx, opts),
		getCommand(ctx, opts),
		addCommand(ctx, opts),
		updateCommand(ctx, opts),
		deleteCommand(ctx, opts),
		readCommand(ctx, opts, true),
		readCommand(ctx, opts, false),
		exportCommand(ctx, opts),
		genresCommand(ctx, opts),
		pingCommand(ctx, opts),
	)

	return cmd
}

type queryFlags struct {
	search   string
	genre    string
	finished bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.search, "search", "", "match title, author or description")
	cmd.Flags().StringVar(&q.genre, "genre", "", "exact genre")
	cmd.Flags().BoolVar(&q.finished, "finished", false, "only books already read")
}

func (q *queryFlags) query() catalog.Query {
	return catalog.Query{Search: q.search, Genre: q.genre, ReadOnly: q.finished}
}

func loadView(ctx context.Context, repo catalog.Repository) (*catalog.View, error) {
	books, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing books: %w", err)
	}
	return catalog.NewView(books), nil
}

func listCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	var q queryFlags
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list books, unread first, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			view, err := loadView(ctx, s.repo)
			if err != nil {
				return err
			}

			view.SetQuery(q.query())
			view.SetPage(page)

			visible := view.Visible()
			out := cmd.OutOrStdout()

			if visible.Total == 0 {
				fmt.Fprintln(out, "no books found")
				return nil
			}

			writeTable(out, visible.Books)
			fmt.Fprintf(out, "page %d of %d (%d books)\n", visible.Number, visible.TotalPages, visible.Total)
			return nil
		},
	}

	q.register(cmd)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")

	return cmd
}

func writeTable(w io.Writer, books []models.Book) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tRATING\tREAD")

	for _, b := range books {
		read := ""
		if b.IsRead {
			read = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", b.Id, b.Title, b.Author, b.Genre, export.Rating(b.Rating), read)
	}

	tw.Flush()
}

func getCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			book, err := s.repo.GetByID(ctx, args[0])
			if err != nil {
				return err
			}

			writeBook(cmd.OutOrStdout(), book)
			return nil
		},
	}
}

func writeBook(w io.Writer, b *models.Book) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "id:\t%s\n", b.Id)
	fmt.Fprintf(tw, "title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "author:\t%s\n", b.Author)
	if b.Description != "" {
		fmt.Fprintf(tw, "description:\t%s\n", b.Description)
	}
	if b.Genre != "" {
		fmt.Fprintf(tw, "genre:\t%s\n", b.Genre)
	}
	fmt.Fprintf(tw, "rating:\t%s\n", export.Rating(b.Rating))
	fmt.Fprintf(tw, "read:\t%t\n", b.IsRead)
	if b.CoverImage != nil {
		fmt.Fprintf(tw, "cover:\t%s\n", describeCover(b.CoverImage))
	}
	fmt.Fprintf(tw, "created:\t%s\n", b.Created_at.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(tw, "updated:\t%s\n", b.Updated_at.Local().Format("2006-01-02 15:04"))

	tw.Flush()
}

func describeCover(c *models.CoverImage) string {
	if c.Kind == models.CoverInline {
		return fmt.Sprintf("inline image (%d bytes encoded)", len(c.Value))
	}
	return c.Value
}

type bookFlags struct {
	title       string
	author      string
	description string
	genre       string
	rating      float64
	cover       string
	read        bool
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "title")
	cmd.Flags().StringVarP(&f.author, "author", "a", "", "author")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&f.genre, "genre", "g", "", "genre")
	cmd.Flags().Float64VarP(&f.rating, "rating", "r", 0, "rating between 0 and 5")
	cmd.Flags().StringVar(&f.cover, "cover", "", "cover image file or url (empty clears on update)")
	cmd.Flags().BoolVar(&f.read, "read", false, "already read")
}

func (f *bookFlags) draft(cmd *cobra.Command) (models.BookDraft, error) {
	draft := models.BookDraft{
		Title:       f.title,
		Author:      f.author,
		Description: f.description,
		Genre:       f.genre,
		IsRead:      f.read,
	}

	if cmd.Flags().Changed("rating") {
		rating := f.rating
		draft.Rating = &rating
	}

	cover, err := covers.FromArg(f.cover)
	if err != nil {
		return draft, err
	}
	draft.CoverImage = cover

	return draft, nil
}

// patch carries only the flags given on the command line.
func (f *bookFlags) patch(cmd *cobra.Command) (models.BookPatch, error) {
	var patch models.BookPatch
	changed := cmd.Flags().Changed

	if changed("title") {
		patch.Title = &f.title
	}
	if changed("author") {
		patch.Author = &f.author
	}
	if changed("description") {
		patch.Description = &f.description
	}
	if changed("genre") {
		patch.Genre = &f.genre
	}
	if changed("rating") {
		patch.Rating = &f.rating
	}
	if changed("read") {
		patch.IsRead = &f.read
	}
	if changed("cover") {
		cover, err := covers.FromArg(f.cover)
		if err != nil {
			return patch, err
		}
		if cover == nil {
			cover = &models.CoverImage{}
		}
		patch.CoverImage = cover
	}

	return patch, nil
}

func addCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	var f bookFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.draft(cmd)
			if err != nil {
				return err
			}

			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			book, err := s.repo.Create(ctx, draft)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %q (%s)\n", book.Title, book.Id)
			return nil
		},
	}

	f.register(cmd)

	return cmd
}

func updateCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	var f bookFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "change the given fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}

			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			book, err := s.repo.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "updated %q (%s)\n", book.Title, book.Id)
			return nil
		},
	}

	f.register(cmd)

	return cmd
}

func deleteCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "delete one or more books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			view, err := loadView(ctx, s.repo)
			if err != nil {
				return err
			}

			view.Selection().Set(args...)

			result, err := view.DeleteSelected(ctx, s.repo)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deleted %d book(s)\n", len(result.Deleted))

			for _, id := range result.Missing {
				fmt.Fprintf(out, "not found: %s\n", id)
			}

			return result.Err()
		},
	}
}

func readCommand(ctx context.Context, opts *booksOptions, read bool) *cobra.Command {
	use, short := "read ID...", "mark books as read"
	if !read {
		use, short = "unread ID...", "mark books as unread"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var errs []error

			for _, id := range args {
				book, err := s.repo.Update(ctx, id, models.BookPatch{IsRead: &read})
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%q read=%t\n", book.Title, book.IsRead)
			}

			return errors.Join(errs...)
		},
	}
}

func exportCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	var q queryFlags
	var out string

	cmd := &cobra.Command{
		Use:   "export [ID...]",
		Short: "write the given books, or every book matching the filters, to a pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			view, err := loadView(ctx, s.repo)
			if err != nil {
				return err
			}

			view.SetQuery(q.query())

			books := view.Filtered()
			if len(args) > 0 {
				view.Selection().Set(args...)
				books = view.SelectedBooks()
			}

			if err := export.WriteFile(out, books); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported %d book(s) to %s\n", len(books), out)
			return nil
		},
	}

	q.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", export.DefaultFilename, "output file")

	return cmd
}

func genresCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "genres",
		Short: "list genres in use, or every suggested genre with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			genres := catalog.DefaultGenres

			if !all {
				s, err := opts.open(ctx)
				if err != nil {
					return err
				}
				defer s.Close()

				books, err := s.repo.List(ctx)
				if err != nil {
					return err
				}
				genres = catalog.Genres(books)
			}

			for _, g := range genres {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "print the suggested genre list")

	return cmd
}

func pingCommand(ctx context.Context, opts *booksOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "check that the api can reach its database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.local != "" {
				return fmt.Errorf("ping needs the api, not --local")
			}

			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.gateway.TestConnection(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}
