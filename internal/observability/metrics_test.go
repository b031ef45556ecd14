package observability

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	testCases := []struct {
		status   int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{204, "2xx"},
		{299, "2xx"},
		{300, "3xx"},
		{301, "3xx"},
		{304, "3xx"},
		{399, "3xx"},
		{400, "4xx"},
		{401, "4xx"},
		{403, "4xx"},
		{404, "4xx"},
		{413, "4xx"},
		{415, "4xx"},
		{499, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
		{503, "5xx"},
		{599, "5xx"},
		{100, "unknown"},
		{0, "unknown"},
		{600, "5xx"}, // >= 500 returns 5xx
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			result := statusClass(tc.status)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	t.Run("returns path unchanged for short paths", func(t *testing.T) {
		result := normalizePath("/api/v1/ocr")
		assert.Equal(t, "/api/v1/ocr", result)
	})

	t.Run("returns long_path for paths over 50 chars", func(t *testing.T) {
		longPath := "/api/v1/very/long/path/that/exceeds/fifty/characters/limit/here"
		result := normalizePath(longPath)
		assert.Equal(t, "long_path", result)
	})

	t.Run("handles empty path", func(t *testing.T) {
		result := normalizePath("")
		assert.Equal(t, "", result)
	})

	t.Run("handles root path", func(t *testing.T) {
		result := normalizePath("/")
		assert.Equal(t, "/", result)
	})
}

// TestMetrics_AllMethods exercises all recorder methods against the singleton
// instance. One test avoids duplicate metric registration issues.
func TestMetrics_AllMethods(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, NewMetrics(), "NewMetrics returns the singleton")

	t.Run("RecordDocument_success", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordDocument("application/pdf", 12, 800*time.Millisecond, nil)
		})
	})

	t.Run("RecordDocument_error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordDocument("image/png", 0, 0, assert.AnError)
		})
	})

	t.Run("RecordOCRRun_success", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordOCRRun("tesseract", 2*time.Second, nil)
		})
	})

	t.Run("RecordOCRRun_error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordOCRRun("openai", 500*time.Millisecond, assert.AnError)
		})
	})

	t.Run("OCRRunStarted", func(t *testing.T) {
		assert.NotPanics(t, func() {
			done := m.OCRRunStarted()
			done()
		})
	})

	t.Run("RecordBenchmarkSession_completed", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordBenchmarkSession(3, false)
		})
	})

	t.Run("RecordBenchmarkSession_aborted", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordBenchmarkSession(2, true)
		})
	})

	t.Run("UpdateUptime", func(t *testing.T) {
		startTime := time.Now().Add(-time.Hour)
		assert.NotPanics(t, func() {
			m.UpdateUptime(startTime)
		})
	})

	t.Run("Handler", func(t *testing.T) {
		handler := m.Handler()
		assert.NotNil(t, handler)
	})

	t.Run("MetricsMiddleware", func(t *testing.T) {
		middleware := m.MetricsMiddleware()
		assert.NotNil(t, middleware)
	})
}
