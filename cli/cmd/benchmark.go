package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/cli/client"
	"github.com/pagelens/pagelens/cli/output"
	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/ocr"
)

var (
	benchProviders string
	benchExport    string
	benchOut       string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <file>",
	Short: "Benchmark OCR providers against each other",
	Long: `Run up to four OCR providers concurrently over the same document and
compare their speed and output.

Each provider runs where its credentials live: local engines run here,
providers with your own key (see 'pagelens keys') call out directly from this
machine, and everything else is batched through the server. Results appear as
each provider finishes; one provider failing never aborts the others.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runBenchmark,
}

func init() {
	benchmarkCmd.Flags().StringVarP(&benchProviders, "providers", "P", "",
		"comma-separated provider ids (required)")
	benchmarkCmd.Flags().StringVar(&benchExport, "export", "",
		"export results: json or csv")
	benchmarkCmd.Flags().StringVar(&benchOut, "out", "",
		"export file path (default benchmark.<format>)")
	_ = benchmarkCmd.MarkFlagRequired("providers")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	var providerIDs []string
	for _, id := range strings.Split(benchProviders, ",") {
		if id = strings.TrimSpace(id); id != "" {
			providerIDs = append(providerIDs, id)
		}
	}
	if len(providerIDs) == 0 {
		return fmt.Errorf("no providers selected")
	}

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	pages, err := eng.normalizer.Normalize(cmd.Context(), document.Document{Data: doc.Data, MediaType: doc.MediaType})
	if err != nil {
		return err
	}

	dispatcher := client.NewStreamDispatcher(apiClient, doc)
	orch := ocr.NewOrchestrator(eng.registry, eng.runner, eng.resolver, dispatcher, 0)

	sess, updates, err := orch.Run(cmd.Context(), providerIDs, pages)
	if err != nil {
		return err
	}

	f := GetFormatter()
	for p := range updates {
		switch p.State {
		case ocr.StateRunning:
			f.PrintInfo(fmt.Sprintf("  %s: running...", p.ProviderID))
		case ocr.StateSucceeded:
			f.PrintInfo(fmt.Sprintf("  %s: done in %d ms", p.ProviderID, p.Result.ProcessingTimeMs))
		case ocr.StateFailed:
			f.PrintInfo(fmt.Sprintf("  %s: failed: %s", p.ProviderID, p.Error))
		}
	}

	if err := cmd.Context().Err(); err != nil {
		return err
	}

	printStats(f, sess)

	if benchExport != "" {
		return exportResults(f, sess)
	}
	return nil
}

// printStats renders the comparison table over the finished session.
func printStats(f *output.Formatter, sess *ocr.Session) {
	stats := ocr.ComputeStats(sess)

	if f.Format != output.FormatTable {
		_ = f.Print(map[string]any{
			"statistics": stats,
			"providers":  sess.Outcomes(),
		})
		return
	}

	f.PrintInfo("")
	rows := make([][]string, 0)
	for _, o := range sess.Outcomes() {
		timeMs, chars := "", ""
		if o.Result != nil {
			timeMs = strconv.FormatInt(o.Result.ProcessingTimeMs, 10)
			chars = strconv.Itoa(len([]rune(o.Result.FullText)))
		}
		rows = append(rows, []string{o.ProviderID, o.ProviderName, string(o.State), timeMs, chars, o.Error})
	}
	f.PrintTable(output.TableData{
		Headers: []string{"ID", "Provider", "Status", "Time (ms)", "Chars", "Error"},
		Rows:    rows,
	})

	f.PrintInfo("")
	if stats.Fastest != nil {
		f.PrintInfo(fmt.Sprintf("Fastest:    %s (%d ms)", stats.Fastest.ProviderName, stats.Fastest.TimeMs))
		f.PrintInfo(fmt.Sprintf("Slowest:    %s (%d ms)", stats.Slowest.ProviderName, stats.Slowest.TimeMs))
		f.PrintInfo(fmt.Sprintf("Most text:  %s (%d chars)", stats.MostCharacters.ProviderName, stats.MostCharacters.CharCount))
		f.PrintInfo(fmt.Sprintf("Average:    %d ms, %d chars", stats.AverageTimeMs, stats.AverageCharCount))
	}
	f.PrintInfo(fmt.Sprintf("Succeeded:  %d   Failed: %d", stats.SuccessCount, stats.ErrorCount))
}

// exportResults writes the session in the requested format.
func exportResults(f *output.Formatter, sess *ocr.Session) error {
	var (
		data string
		err  error
		ext  string
	)
	switch benchExport {
	case "json":
		data, err = ocr.ExportJSON(sess)
		ext = "json"
	case "csv":
		data, err = ocr.ExportCSV(sess)
		ext = "csv"
	default:
		return fmt.Errorf("unsupported export format %q (json or csv)", benchExport)
	}
	if err != nil {
		return err
	}

	path := benchOut
	if path == "" {
		path = "benchmark." + ext
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	f.PrintSuccess(fmt.Sprintf("Results exported to %s", path))
	return nil
}
