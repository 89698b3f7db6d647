package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape over bound", 1600, 900, 800, 450},
		{"portrait over bound", 600, 1200, 400, 800},
		{"square over bound", 1000, 1000, 800, 800},
		{"within bound", 320, 200, 320, 200},
		{"rounds half up", 1600, 901, 800, 451},
		{"thin sliver", 5000, 1, 800, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.width, tt.height, 800)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestCompressScalesAndEncodesJPEG(t *testing.T) {
	c := NewCompressor()

	out, err := c.Compress(context.Background(), encodePNG(t, 1600, 900))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 450, cfg.Height)
}

func TestCompressNeverUpscales(t *testing.T) {
	c := NewCompressor()

	out, err := c.Compress(context.Background(), encodePNG(t, 40, 60))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestCompressRejectsGarbage(t *testing.T) {
	c := NewCompressor()

	_, err := c.Compress(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrNotImage)

	truncated := encodePNG(t, 32, 32)[:40]
	_, err = c.Compress(context.Background(), truncated)
	assert.ErrorIs(t, err, ErrDecode)
}

// withDimensions rewrites the IHDR chunk of a PNG so its header claims
// width x height while the pixel data stays as encoded.
func withDimensions(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()

	require.Equal(t, "IHDR", string(data[12:16]))

	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompressRejectsOversizedHeader(t *testing.T) {
	forged := withDimensions(t, encodePNG(t, 1, 1), 16000, 16000)

	_, err := NewCompressor().Compress(context.Background(), forged)
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestCompressHonoursPixelBudget(t *testing.T) {
	c := NewCompressor()
	c.MaxPixels = 100

	_, err := c.Compress(context.Background(), encodePNG(t, 20, 20))
	assert.ErrorIs(t, err, ErrDecode)

	c.MaxPixels = 400
	_, err = c.Compress(context.Background(), encodePNG(t, 20, 20))
	assert.NoError(t, err)
}

func TestCompressDataURI(t *testing.T) {
	c := NewCompressor()

	uri := DataURI("image/png", encodePNG(t, 900, 1800))

	out, err := c.CompressDataURI(context.Background(), uri)
	require.NoError(t, err)

	mime, data, err := ParseDataURI(out)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
}

func TestParseDataURI(t *testing.T) {
	mime, data, err := ParseDataURI("data:text/plain;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mime)
	assert.Equal(t, "hello", string(data))

	_, data, err = ParseDataURI("data:,hi%20there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(data))

	_, _, err = ParseDataURI("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidDataURI)

	_, _, err = ParseDataURI("data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidDataURI)
}
