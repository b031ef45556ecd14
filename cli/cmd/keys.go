package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/cli/output"
	"github.com/pagelens/pagelens/cli/util"
	"github.com/pagelens/pagelens/internal/keystore"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage your own provider API keys",
	Long: `Store, inspect, and remove your own (bring-your-own-key) provider API
keys. Keys live in the system keychain and never leave this machine except in
calls you make directly to the provider.`,
}

var keysSetCmd = &cobra.Command{
	Use:     "set <provider>",
	Short:   "Store a provider API key",
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runKeysSet,
}

var keysShowCmd = &cobra.Command{
	Use:     "show <provider>",
	Short:   "Show whether a key is stored (masked)",
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runKeysShow,
}

var keysDeleteCmd = &cobra.Command{
	Use:     "delete <provider>",
	Short:   "Remove a stored provider API key",
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeClient,
	RunE:    runKeysDelete,
}

func init() {
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysDeleteCmd)
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	providerID := args[0]
	f := GetFormatter()

	var key string
	var err error
	if util.IsInteractive() {
		key, err = util.ReadPassword(fmt.Sprintf("API key for %s: ", providerID))
	} else {
		key, err = util.ReadLine("")
	}
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key")
	}

	keys := keystore.Open()
	if err := keys.Set(providerID, key); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	// Remember the preference so benchmarks pick the direct class for this
	// provider without an explicit mode flag.
	cfg.SetMode(providerID, "user")
	if err := cfg.Save(GetConfigPath()); err != nil {
		f.PrintWarning(fmt.Sprintf("key stored but config not saved: %v", err))
	}

	f.PrintSuccess(fmt.Sprintf("Key for %s stored in the system keychain", providerID))
	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	providerID := args[0]
	f := GetFormatter()

	keys := keystore.Open()
	key, err := keys.Get(providerID)
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if key == "" {
		f.PrintInfo(fmt.Sprintf("No key stored for %s", providerID))
		return nil
	}

	if f.Format != output.FormatTable {
		return f.Print(map[string]string{"provider": providerID, "key": util.MaskToken(key)})
	}
	f.PrintKeyValue(providerID, util.MaskToken(key))
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	providerID := args[0]
	f := GetFormatter()

	keys := keystore.Open()
	if err := keys.Delete(providerID); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	cfg.SetMode(providerID, "system")
	if err := cfg.Save(GetConfigPath()); err != nil {
		f.PrintWarning(fmt.Sprintf("key removed but config not saved: %v", err))
	}

	f.PrintSuccess(fmt.Sprintf("Key for %s removed", providerID))
	return nil
}
