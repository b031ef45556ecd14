package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/cli/output"
)

var providersCmd = &cobra.Command{
	Use:     "providers",
	Short:   "List OCR providers",
	Long:    `List the server's OCR provider catalog with execution venue and availability.`,
	PreRunE: initializeClient,
	RunE:    runProvidersList,
}

var providersCheckCmd = &cobra.Command{
	Use:     "check",
	Short:   "Probe provider credentials",
	Long:    `Run a live credential check against every credential-gated provider on the server.`,
	PreRunE: initializeClient,
	RunE:    runProvidersCheck,
}

func init() {
	providersCmd.AddCommand(providersCheckCmd)
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	descriptors, err := apiClient.Providers(cmd.Context())
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Format != output.FormatTable {
		return f.Print(descriptors)
	}

	rows := make([][]string, 0, len(descriptors))
	for _, d := range descriptors {
		venue := "hosted"
		if d.ExecutesLocally {
			venue = "local"
		}
		byok := ""
		if d.AcceptsUserCredentials {
			byok = "yes"
		}
		available := "no"
		if d.Available {
			available = "yes"
		}
		rows = append(rows, []string{d.ID, d.DisplayName, venue, byok, available})
	}

	f.PrintTable(output.TableData{
		Headers: []string{"ID", "Name", "Venue", "BYOK", "Available"},
		Rows:    rows,
	})
	return nil
}

func runProvidersCheck(cmd *cobra.Command, args []string) error {
	availability, err := apiClient.Availability(cmd.Context())
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Format != output.FormatTable {
		return f.Print(availability)
	}

	ids := make([]string, 0, len(availability))
	for id := range availability {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		status := "unavailable"
		if availability[id] {
			status = "ok"
		}
		rows = append(rows, []string{id, status})
	}

	f.PrintTable(output.TableData{
		Headers: []string{"ID", "Credentials"},
		Rows:    rows,
	})
	return nil
}
