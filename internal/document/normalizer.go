package document

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	// Register decoders for dimension probing of uploaded images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Rasterizer converts a paginated document into one raster image per page.
// Implementations own any temporary state and must release it on all paths.
type Rasterizer interface {
	Pages(ctx context.Context, data []byte) ([]PageImage, error)
}

// Normalizer turns an uploaded document into an ordered page-image sequence.
type Normalizer struct {
	rasterizer Rasterizer
}

// NewNormalizer creates a Normalizer backed by the given rasterizer.
func NewNormalizer(rasterizer Rasterizer) *Normalizer {
	return &Normalizer{rasterizer: rasterizer}
}

// Normalize converts doc into its page images.
//
// Image documents become a single page 1 carrying the document's own bytes.
// PDF documents are split by the rasterizer, pages numbered from 1 in order.
func (n *Normalizer) Normalize(ctx context.Context, doc Document) ([]PageImage, error) {
	if int64(len(doc.Data)) > MaxDocumentBytes {
		return nil, ErrDocumentTooLarge
	}

	switch {
	case IsImageMediaType(doc.MediaType):
		return n.normalizeImage(doc)
	case doc.MediaType == MediaTypePDF:
		pages, err := n.rasterizer.Pages(ctx, doc.Data)
		if err != nil {
			return nil, &ConversionError{Err: err}
		}
		if len(pages) == 0 {
			return nil, &ConversionError{Err: fmt.Errorf("no pages extracted from document")}
		}
		log.Debug().Int("pages", len(pages)).Msg("PDF rasterized")
		return pages, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, doc.MediaType)
	}
}

func (n *Normalizer) normalizeImage(doc Document) ([]PageImage, error) {
	width, height := probeDimensions(doc.Data)
	return []PageImage{{
		PageNumber: 1,
		Data:       doc.Data,
		Width:      width,
		Height:     height,
	}}, nil
}

// probeDimensions reads the image header for width/height. Undecodable headers
// yield zero dimensions rather than an error; the OCR engine does not depend
// on them.
func probeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("Could not probe image dimensions")
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
