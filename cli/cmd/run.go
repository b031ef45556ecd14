package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/cli/output"
	"github.com/pagelens/pagelens/internal/document"
	"github.com/pagelens/pagelens/internal/ocr"
)

var (
	runProvider string
	runLocal    bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Extract text from a document",
	Long: `Run one OCR provider against a PDF or image document.

By default the run executes on the server with its system-held credentials.
With --local the document never leaves this machine: the provider executes
here, using a key from your keychain for hosted providers.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runProvider, "provider", "P", "tesseract",
		"provider id to run")
	runCmd.Flags().BoolVar(&runLocal, "local", false,
		"execute on this machine instead of the server")
}

func runRun(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	var result *ocr.Result
	if runLocal {
		result, err = runLocally(cmd, doc.Data, doc.MediaType)
	} else {
		result, err = apiClient.RunOCR(cmd.Context(), runProvider, doc)
	}
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Format != output.FormatTable {
		return f.Print(result)
	}

	f.PrintInfo(fmt.Sprintf("Provider: %s  (%d pages, %d ms)",
		result.ProviderLabel, len(result.Pages), result.ProcessingTimeMs))
	f.PrintInfo("")
	f.PrintInfo(result.FullText)
	return nil
}

// runLocally normalizes and recognizes the document in this process. Hosted
// providers resolve a key from the keychain (or the server-held mode fails).
func runLocally(cmd *cobra.Command, data []byte, mediaType string) (*ocr.Result, error) {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return nil, err
	}

	pages, err := eng.normalizer.Normalize(cmd.Context(), document.Document{Data: data, MediaType: mediaType})
	if err != nil {
		return nil, err
	}

	cred, err := eng.resolver.Resolve(runProvider)
	if err != nil {
		return nil, err
	}
	if cred.Mode == ocr.SystemHeld {
		d, derr := eng.registry.Get(runProvider)
		if derr == nil && !d.Descriptor().ExecutesLocally {
			return nil, fmt.Errorf("%s has no user key stored; store one with 'pagelens keys set %s' or drop --local", runProvider, runProvider)
		}
	}

	return eng.runner.Run(cmd.Context(), runProvider, pages, cred)
}
