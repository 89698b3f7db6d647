package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 800
	DefaultQuality      = 70
	DefaultTimeout      = 10 * time.Second
	DefaultMaxPixels    = 40_000_000
)

var (
	ErrNotImage = errors.New("payload is not an image")
	ErrDecode   = errors.New("image could not be decoded")
	ErrTimeout  = errors.New("image decode timed out")
)

// Compressor shrinks cover images so the longer side is at most
// MaxDimension and re-encodes them as JPEG. Sources whose header claims
// more than MaxPixels are refused before any pixel data is allocated.
type Compressor struct {
	MaxDimension int
	Quality      int
	Timeout      time.Duration
	MaxPixels    int
}

func NewCompressor() *Compressor {
	return &Compressor{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
		Timeout:      DefaultTimeout,
		MaxPixels:    DefaultMaxPixels,
	}
}

type decoded struct {
	img image.Image
	err error
}

// Compress returns the JPEG encoding of data scaled to fit. It never
// upscales.
func (c *Compressor) Compress(ctx context.Context, data []byte) ([]byte, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	img, err := c.decode(ctx, data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), c.maxDimension())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: c.quality()}); err != nil {
		return nil, fmt.Errorf("error encoding jpeg: %w", err)
	}

	return out.Bytes(), nil
}

// CompressDataURI is Compress for data URIs. The result is always a
// JPEG data URI.
func (c *Compressor) CompressDataURI(ctx context.Context, uri string) (string, error) {
	_, data, err := ParseDataURI(uri)
	if err != nil {
		return "", err
	}

	out, err := c.Compress(ctx, data)
	if err != nil {
		return "", err
	}

	return DataURI("image/jpeg", out), nil
}

func (c *Compressor) decode(ctx context.Context, data []byte) (image.Image, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	if int64(cfg.Width)*int64(cfg.Height) > int64(c.maxPixels()) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, c.maxPixels())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan decoded, 1)

	go func() {
		img, _, err := image.Decode(bytes.NewReader(data))
		done <- decoded{img: img, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, res.err)
		}
		if b := res.img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
			return nil, fmt.Errorf("%w: empty image", ErrDecode)
		}
		return res.img, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func (c *Compressor) maxDimension() int {
	if c.MaxDimension <= 0 {
		return DefaultMaxDimension
	}
	return c.MaxDimension
}

func (c *Compressor) maxPixels() int {
	if c.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return c.MaxPixels
}

func (c *Compressor) quality() int {
	if c.Quality <= 0 || c.Quality > 100 {
		return DefaultQuality
	}
	return c.Quality
}

// FitWithin scales width and height so the longer side is at most max.
// A landscape image is bounded by its width, anything else by its height.
func FitWithin(width, height, max int) (int, int) {
	if width > height && width > max {
		h := int(math.Round(float64(height) * float64(max) / float64(width)))
		return max, atLeastOne(h)
	}

	if height > max {
		w := int(math.Round(float64(width) * float64(max) / float64(height)))
		return atLeastOne(w), max
	}

	return width, height
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
