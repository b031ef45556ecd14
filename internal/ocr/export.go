package ocr

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// exportResult is the per-provider result block of a JSON export.
type exportResult struct {
	Text             string `json:"text"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	CharacterCount   int    `json:"characterCount"`
	PageCount        int    `json:"pageCount"`
}

// exportProvider is one outcome row of a JSON export. Result is null for
// outcomes without a result; Error is null for outcomes without one.
type exportProvider struct {
	ProviderID   string        `json:"providerId"`
	ProviderName string        `json:"providerName"`
	Status       OutcomeState  `json:"status"`
	Error        *string       `json:"error"`
	Result       *exportResult `json:"result"`
}

type exportDocument struct {
	Timestamp  string           `json:"timestamp"`
	Statistics Stats            `json:"statistics"`
	Providers  []exportProvider `json:"providers"`
}

// ExportJSON serializes the full outcome set plus computed statistics as a
// deterministic JSON document.
func ExportJSON(s *Session) (string, error) {
	doc := exportDocument{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Statistics: ComputeStats(s),
		Providers:  make([]exportProvider, 0, len(s.Outcomes())),
	}

	for _, o := range s.Outcomes() {
		row := exportProvider{
			ProviderID:   o.ProviderID,
			ProviderName: o.ProviderName,
			Status:       o.State,
		}
		if o.Error != "" {
			msg := o.Error
			row.Error = &msg
		}
		if o.Result != nil {
			row.Result = &exportResult{
				Text:             o.Result.FullText,
				ProcessingTimeMs: o.Result.ProcessingTimeMs,
				CharacterCount:   utf8.RuneCountInString(o.Result.FullText),
				PageCount:        len(o.Result.Pages),
			}
		}
		doc.Providers = append(doc.Providers, row)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return string(out), nil
}

// csvHeader is the fixed header row of a CSV export.
var csvHeader = []string{"Provider ID", "Provider Name", "Status", "Processing Time (ms)", "Character Count", "Page Count", "Error"}

// ExportCSV serializes the outcome set as CSV, one row per outcome in
// selection order. Numeric fields are blank, not zero, when the outcome has
// no result; fields containing quotes are double-quote escaped.
func ExportCSV(s *Session) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, o := range s.Outcomes() {
		row := []string{o.ProviderID, o.ProviderName, string(o.State), "", "", "", o.Error}
		if o.Result != nil {
			row[3] = strconv.FormatInt(o.Result.ProcessingTimeMs, 10)
			row[4] = strconv.Itoa(utf8.RuneCountInString(o.Result.FullText))
			row[5] = strconv.Itoa(len(o.Result.Pages))
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}
