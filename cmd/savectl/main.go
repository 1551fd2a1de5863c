package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pepasjc/savesync/internal/sdk"
	"github.com/pepasjc/savesync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "savectl",
	Short:         "Admin CLI for a save sync server",
	Version:       version.Detailed(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newClient() (*sdk.Client, error) {
	return sdk.New(viper.GetString("server"), viper.GetString("api-key"))
}

// consoleID derives a stable device identifier so uploads and sync plans
// from the same machine are recognized as such.
func consoleID() string {
	id, err := machineid.ProtectedID("savesync")
	if err != nil {
		return ""
	}
	// the 3DS client sends a 16-hex console id, match its shape
	if len(id) > 16 {
		id = id[:16]
	}
	return strings.ToUpper(id)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("server", "s", "http://localhost:8080", "Server base URL")
	flags.StringP("api-key", "k", "", "API key for authenticated endpoints")

	viper.SetEnvPrefix("SAVESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)

	rootCmd.AddCommand(
		statusCmd,
		titlesCmd,
		metaCmd,
		pullCmd,
		pushCmd,
		historyCmd,
		restoreCmd,
		planCmd,
	)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
