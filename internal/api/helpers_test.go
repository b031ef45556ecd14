package api

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/ocr"
)

// fakeProvider is a scriptable in-process provider for handler tests.
type fakeProvider struct {
	id        string
	name      string
	local     bool
	byok      bool
	available bool
	pageText  string
	err       error
	delay     time.Duration
}

func (f *fakeProvider) ID() string          { return f.id }
func (f *fakeProvider) DisplayName() string { return f.name }

func (f *fakeProvider) Descriptor() ocr.Descriptor {
	return ocr.Descriptor{
		ID:                     f.id,
		DisplayName:            f.name,
		ExecutesLocally:        f.local,
		AcceptsUserCredentials: f.byok,
		Available:              f.available,
	}
}

func (f *fakeProvider) Recognize(ctx context.Context, cred ocr.Credential, page document.PageImage) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.pageText, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:   ":0",
			BodyLimit: 12 * 1024 * 1024,
		},
		OCR: config.OCRConfig{
			RasterDPI:    150,
			MaxDocBytes:  10 * 1024 * 1024,
			Languages:    []string{"eng"},
			MaxBenchmark: 4,
		},
	}
}

func newTestServer(t *testing.T, providers ...ocr.Provider) *Server {
	t.Helper()

	if len(providers) == 0 {
		providers = []ocr.Provider{
			&fakeProvider{id: "alpha", name: "Alpha", local: true, available: true, pageText: "alpha text"},
			&fakeProvider{id: "beta", name: "Beta", byok: true, available: true, pageText: "beta text"},
		}
	}

	registry, err := ocr.NewRegistry(providers...)
	require.NoError(t, err)

	return NewServer(testConfig(), registry)
}

// pngBytes returns a real, decodable PNG payload.
func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadRequest builds a multipart request with a file part plus extra form fields.
func uploadRequest(t *testing.T, url string, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
