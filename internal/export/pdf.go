// Package export renders a book list as a printable PDF table.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/oseayemenre/bookshelf/internal/models"
)

const (
	DefaultFilename = "my-books.pdf"
	Heading         = "My Book Collection"

	margin    = 14.0
	startY    = 30.0
	rowHeight = 8.0
)

var ErrNoBooks = errors.New("no books to export")

type column struct {
	title string
	width float64
	value func(models.Book) string
}

var columns = []column{
	{title: "Title", width: 70, value: func(b models.Book) string { return orNA(b.Title) }},
	{title: "Author", width: 50, value: func(b models.Book) string { return orNA(b.Author) }},
	{title: "Genre", width: 40, value: func(b models.Book) string { return orNA(b.Genre) }},
	{title: "Rating", width: 22, value: func(b models.Book) string { return Rating(b.Rating) }},
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Rating formats a rating to one decimal, or N/A when unset.
func Rating(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

// Export writes one table row per book, in the order given.
func Export(w io.Writer, books []models.Book) error {
	if len(books) == 0 {
		return ErrNoBooks
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(Heading, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(margin, 22, Heading)

	pdf.SetY(startY)
	header(pdf)

	_, pageHeight := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "", 10)

	for i, book := range books {
		if pdf.GetY()+rowHeight > pageHeight-margin {
			pdf.AddPage()
			header(pdf)
			pdf.SetFont("Helvetica", "", 10)
		}

		fill := i%2 == 1
		pdf.SetFillColor(245, 247, 250)

		for _, col := range columns {
			text := fit(pdf, tr(col.value(book)), col.width-2)
			pdf.CellFormat(col.width, rowHeight, text, "B", 0, "L", fill, 0, "")
		}

		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error rendering pdf: %w", err)
	}

	return nil
}

func header(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(59, 130, 246)
	pdf.SetTextColor(255, 255, 255)

	for _, col := range columns {
		pdf.CellFormat(col.width, rowHeight, col.title, "", 0, "L", true, 0, "")
	}

	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// fit shortens text with an ellipsis until it fits width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + "..."
}

// WriteFile exports books to path, removing the partial file on failure.
func WriteFile(path string, books []models.Book) error {
	if len(books) == 0 {
		return ErrNoBooks
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	if err := Export(f, books); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	return f.Close()
}
