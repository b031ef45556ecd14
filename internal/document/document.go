// Package document normalizes uploaded files into an ordered sequence of
// per-page images that OCR providers can consume.
package document

import (
	"errors"
	"fmt"
)

// MediaTypePDF is the only paginated media type accepted at the ingestion boundary.
const MediaTypePDF = "application/pdf"

// imageMediaTypes lists the single-page image types accepted at the ingestion boundary.
var imageMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/tiff": true,
	"image/gif":  true,
	"image/bmp":  true,
}

// MaxDocumentBytes is the hard cap on accepted payloads, enforced before any processing.
const MaxDocumentBytes = 10 * 1024 * 1024

// Document is an uploaded payload with its declared media type. It is consumed
// exactly once by the Normalizer and not retained afterwards.
type Document struct {
	Data      []byte
	MediaType string
}

// PageImage is one page of a normalized document. PageNumber is 1-based and
// strictly increasing with no gaps within a document's page sequence.
type PageImage struct {
	PageNumber int    `json:"page_number"`
	Data       []byte `json:"-"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// ErrUnsupportedMediaType indicates the declared media type is neither a
// supported image type nor a paginated document type.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// ErrDocumentTooLarge indicates the payload exceeds MaxDocumentBytes.
var ErrDocumentTooLarge = errors.New("document exceeds maximum allowed size")

// ConversionError wraps a rasterizer failure while splitting a paginated
// document into page images.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("document conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsImageMediaType reports whether mt is an accepted single-page image type.
func IsImageMediaType(mt string) bool {
	return imageMediaTypes[mt]
}

// IsSupportedMediaType reports whether mt is accepted at the ingestion boundary.
func IsSupportedMediaType(mt string) bool {
	return mt == MediaTypePDF || imageMediaTypes[mt]
}
