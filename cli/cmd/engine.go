package cmd

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagelens/pagelens/cli/client"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/keystore"
	"github.com/pagelens/pagelens/internal/ocr"
)

// engine bundles everything a local or mixed-venue run needs: the provider
// catalog merged with the server's availability view, the user's keychain,
// and local document normalization.
type engine struct {
	registry   *ocr.Registry
	runner     *ocr.Runner
	resolver   *ocr.Resolver
	normalizer *document.Normalizer
	keys       keystore.Store
}

// remoteProvider overlays the server's availability onto a locally
// constructed hosted adapter: the server holds the system credentials, so its
// descriptor decides whether the mediated class can serve the provider. Local
// adapters keep their own availability.
type remoteProvider struct {
	ocr.Provider
	available bool
}

func (p remoteProvider) Descriptor() ocr.Descriptor {
	d := p.Provider.Descriptor()
	if !d.ExecutesLocally {
		d.Available = p.available
	}
	return d
}

// buildEngine constructs the CLI-side benchmark engine. Hosted adapters are
// built from local environment configuration (for direct BYOK runs) and
// merged with the server catalog's availability.
func buildEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	catalog, err := ocr.NewCatalog(cfg.Providers, cfg.OCR.Languages)
	if err != nil {
		return nil, err
	}

	remote := make(map[string]bool)
	if descriptors, err := apiClient.Providers(ctx); err == nil {
		for _, d := range descriptors {
			remote[d.ID] = d.Available
		}
	}
	// An unreachable server leaves every hosted provider unavailable; local
	// providers still work.

	providers := make([]ocr.Provider, 0)
	for _, p := range catalog.Providers() {
		if p.Descriptor().ExecutesLocally {
			providers = append(providers, p)
			continue
		}
		providers = append(providers, remoteProvider{Provider: p, available: remote[p.ID()]})
	}

	registry, err := ocr.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}

	keys := keystore.Open()
	resolver := ocr.NewResolver(registry, keys)
	for id, mode := range cfg2modes() {
		resolver.SetMode(id, mode)
	}

	return &engine{
		registry:   registry,
		runner:     ocr.NewRunner(registry),
		resolver:   resolver,
		normalizer: document.NewNormalizer(document.NewFitzRasterizer(cfg.OCR.RasterDPI)),
		keys:       keys,
	}, nil
}

// cfg2modes translates persisted mode preferences into resolver modes
func cfg2modes() map[string]ocr.CredentialMode {
	out := make(map[string]ocr.CredentialMode)
	if cfg == nil {
		return out
	}
	for id, mode := range cfg.CredentialModes {
		switch mode {
		case "user":
			out[id] = ocr.UserSupplied
		case "system":
			out[id] = ocr.SystemHeld
		}
	}
	return out
}

// loadDocument reads a file and determines its media type from the extension,
// falling back to content sniffing.
func loadDocument(path string) (client.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if !document.IsSupportedMediaType(mediaType) {
		return client.Upload{}, fmt.Errorf("unsupported document type %q (PDF and common image formats are accepted)", mediaType)
	}

	return client.Upload{
		Filename:  filepath.Base(path),
		MediaType: mediaType,
		Data:      data,
	}, nil
}
