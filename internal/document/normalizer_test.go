package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRasterizer returns canned pages or an error.
type stubRasterizer struct {
	pages []PageImage
	err   error
}

func (s *stubRasterizer) Pages(ctx context.Context, data []byte) ([]PageImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize_SingleImage(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})
	data := pngBytes(t, 120, 80)

	pages, err := n.Normalize(context.Background(), Document{Data: data, MediaType: "image/png"})
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 120, pages[0].Width)
	assert.Equal(t, 80, pages[0].Height)
	assert.Equal(t, data, pages[0].Data)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})
	doc := Document{Data: pngBytes(t, 64, 64), MediaType: "image/png"}

	first, err := n.Normalize(context.Background(), doc)
	require.NoError(t, err)
	second, err := n.Normalize(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PageNumber, second[i].PageNumber)
		assert.Equal(t, first[i].Width, second[i].Width)
		assert.Equal(t, first[i].Height, second[i].Height)
	}
}

func TestNormalize_UndecodableImageDimensions(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})

	pages, err := n.Normalize(context.Background(), Document{
		Data:      []byte("not really a png"),
		MediaType: "image/png",
	})
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Width)
	assert.Equal(t, 0, pages[0].Height)
}

func TestNormalize_PDFPageOrder(t *testing.T) {
	raster := &stubRasterizer{
		pages: []PageImage{
			{PageNumber: 1, Data: []byte("p1"), Width: 100, Height: 100},
			{PageNumber: 2, Data: []byte("p2"), Width: 100, Height: 100},
			{PageNumber: 3, Data: []byte("p3"), Width: 100, Height: 100},
		},
	}
	n := NewNormalizer(raster)

	pages, err := n.Normalize(context.Background(), Document{
		Data:      []byte("%PDF-1.4"),
		MediaType: MediaTypePDF,
	})
	require.NoError(t, err)

	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
	}
}

func TestNormalize_UnsupportedMediaType(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})

	_, err := n.Normalize(context.Background(), Document{
		Data:      []byte("hello"),
		MediaType: "text/plain",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestNormalize_ConversionFailure(t *testing.T) {
	cause := fmt.Errorf("corrupt xref table")
	n := NewNormalizer(&stubRasterizer{err: cause})

	_, err := n.Normalize(context.Background(), Document{
		Data:      []byte("%PDF-1.4 garbage"),
		MediaType: MediaTypePDF,
	})
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "corrupt xref table")
}

func TestNormalize_EmptyPDF(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{pages: []PageImage{}})

	_, err := n.Normalize(context.Background(), Document{
		Data:      []byte("%PDF-1.4"),
		MediaType: MediaTypePDF,
	})
	require.Error(t, err)

	var convErr *ConversionError
	assert.True(t, errors.As(err, &convErr))
}

func TestNormalize_DocumentTooLarge(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})

	_, err := n.Normalize(context.Background(), Document{
		Data:      make([]byte, MaxDocumentBytes+1),
		MediaType: "image/png",
	})
	assert.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestIsSupportedMediaType(t *testing.T) {
	for _, mt := range []string{"image/png", "image/jpeg", "image/webp", "image/tiff", "image/gif", "image/bmp", "application/pdf"} {
		assert.True(t, IsSupportedMediaType(mt), mt)
	}
	for _, mt := range []string{"text/plain", "application/json", "image/svg+xml", ""} {
		assert.False(t, IsSupportedMediaType(mt), mt)
	}
}
