package document

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the rasterization resolution for paginated documents, high
// enough for legible small print.
const DefaultDPI = 300

// FitzRasterizer rasterizes PDF documents page by page using MuPDF (go-fitz).
type FitzRasterizer struct {
	dpi float64
}

// NewFitzRasterizer creates a rasterizer at the given DPI; dpi <= 0 selects
// DefaultDPI.
func NewFitzRasterizer(dpi int) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRasterizer{dpi: float64(dpi)}
}

// Pages splits data into one PNG-encoded image per page, numbered from 1.
func (r *FitzRasterizer) Pages(ctx context.Context, data []byte) ([]PageImage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	pages := make([]PageImage, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		bounds := img.Bounds()
		pages = append(pages, PageImage{
			PageNumber: i + 1,
			Data:       buf.Bytes(),
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return pages, nil
}
