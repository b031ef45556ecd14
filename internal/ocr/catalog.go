package ocr

import "github.com/pagelens/pagelens/internal/config"

// NewCatalog builds the fixed provider catalog from configuration. The
// catalog is defined once at process start; descriptors never change
// afterwards.
func NewCatalog(cfg config.ProvidersConfig, languages []string) (*Registry, error) {
	return NewRegistry(
		NewTesseractProvider(TesseractOptions{
			Enabled:   cfg.TesseractEnabled,
			Languages: languages,
		}),
		NewOpenAIProvider(OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}),
		NewAzureProvider(AzureOptions{
			APIKey:   cfg.AzureAPIKey,
			Endpoint: cfg.AzureEndpoint,
		}),
		NewGoogleVisionProvider(GoogleVisionOptions{
			APIKey: cfg.GoogleAPIKey,
		}),
	)
}
