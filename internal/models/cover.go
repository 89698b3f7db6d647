package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type CoverKind string

const (
	CoverURL       CoverKind = "url"
	CoverInline    CoverKind = "inline"
	CoverReference CoverKind = "reference"
)

// ReferencePrefix is the key prefix under which local image blobs live.
const ReferencePrefix = "image_"

var ErrInvalidCover = errors.New("invalid cover image")

// CoverImage says explicitly what kind of cover a book carries. The zero
// value means "no cover" and is how a patch clears one.
type CoverImage struct {
	Kind  CoverKind `json:"kind"`
	Value string    `json:"value"`
}

func ReferenceKey(bookId string) string {
	return ReferencePrefix + bookId
}

func URLCover(url string) *CoverImage {
	return &CoverImage{Kind: CoverURL, Value: url}
}

func InlineCover(dataURI string) *CoverImage {
	return &CoverImage{Kind: CoverInline, Value: dataURI}
}

func ReferenceCover(bookId string) *CoverImage {
	return &CoverImage{Kind: CoverReference, Value: ReferenceKey(bookId)}
}

// ParseCover classifies a bare string by its prefix.
func ParseCover(s string) (CoverImage, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return CoverImage{}, nil
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return CoverImage{Kind: CoverURL, Value: s}, nil
	case strings.HasPrefix(s, "data:image/"):
		return CoverImage{Kind: CoverInline, Value: s}, nil
	case strings.HasPrefix(s, ReferencePrefix):
		return CoverImage{Kind: CoverReference, Value: s}, nil
	}

	return CoverImage{}, fmt.Errorf("%w: unrecognised cover %q", ErrInvalidCover, truncate(s, 32))
}

func (c CoverImage) IsZero() bool {
	return c.Value == ""
}

func (c CoverImage) Validate() error {
	if c.IsZero() {
		return nil
	}

	parsed, err := ParseCover(c.Value)
	if err != nil {
		return err
	}

	if c.Kind != "" && c.Kind != parsed.Kind {
		return fmt.Errorf("%w: kind %q does not match value", ErrInvalidCover, c.Kind)
	}

	return nil
}

// UnmarshalJSON accepts either {"kind":..,"value":..} or a bare string.
func (c *CoverImage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		parsed, err := ParseCover(s)
		if err != nil {
			return err
		}

		*c = parsed
		return nil
	}

	type plain CoverImage
	var p plain

	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.Kind == "" && p.Value != "" {
		parsed, err := ParseCover(p.Value)
		if err != nil {
			return err
		}

		*c = parsed
		return nil
	}

	switch p.Kind {
	case "", CoverURL, CoverInline, CoverReference:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCover, p.Kind)
	}

	*c = CoverImage(p)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
