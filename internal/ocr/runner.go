package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagelens/pagelens/internal/document"
)

// Runner executes one provider against one normalized document, measuring
// wall-clock time and producing a canonical Result.
type Runner struct {
	registry *Registry
}

// NewRunner creates a runner over the registry.
func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// Run recognizes all pages with the given provider.
//
// Batch-capable adapters get one call for the whole document; page-by-page
// adapters are invoked sequentially in page order, since a single provider's
// OCR call is already the bottleneck and providers process one document at a
// time. Any page failure aborts the whole run; partially completed pages are
// discarded.
func (r *Runner) Run(ctx context.Context, providerID string, pages []document.PageImage, cred Credential) (*Result, error) {
	provider, err := r.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to recognize")
	}

	start := time.Now()

	var texts []string
	if batch, ok := provider.(BatchProvider); ok {
		texts, err = batch.RecognizeAll(ctx, cred, pages)
		if err == nil && len(texts) != len(pages) {
			err = &ProviderError{
				Provider: providerID,
				Kind:     ErrOther,
				Message:  fmt.Sprintf("provider returned %d page results for %d pages", len(texts), len(pages)),
			}
		}
	} else {
		texts = make([]string, 0, len(pages))
		for _, page := range pages {
			var text string
			text, err = provider.Recognize(ctx, cred, page)
			if err != nil {
				break
			}
			texts = append(texts, text)
		}
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	log.Debug().
		Str("provider", providerID).
		Int("pages", len(pages)).
		Dur("elapsed", elapsed).
		Msg("OCR run completed")

	return newResult(provider.DisplayName(), texts, elapsed.Milliseconds()), nil
}
