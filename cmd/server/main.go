package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pepasjc/savesync/internal/server"
	"github.com/pepasjc/savesync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "savesync-server",
	Short:   "SaveSync server",
	Long:    "Synchronizes handheld-console save data across devices.",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := &server.Config{
			HTTP: server.HTTPConfig{
				Addr:     viper.GetString("bind"),
				CertFile: viper.GetString("cert"),
				KeyFile:  viper.GetString("key"),
			},
			Auth: server.AuthConfig{
				APIKey: viper.GetString("api-key"),
			},
			TitleDBPaths: viper.GetStringSlice("titledb"),
		}
		config.Saves.DataDir = viper.GetString("data-dir")
		config.Saves.MaxHistoryVersions = viper.GetInt("max-history")
		config.Update.Owner = viper.GetString("update-owner")
		config.Update.Repo = viper.GetString("update-repo")

		s, err := server.New(config)
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		defer slog.Info("Bye!")
		return s.Start(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.SortFlags = false
	flags.StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	flags.StringP("data-dir", "d", "./data/saves", "Root directory for stored save data")
	flags.StringP("api-key", "k", "", "Shared API key consoles must present")
	flags.Int("max-history", 10, "Archived snapshots kept per title")
	flags.StringSlice("titledb", []string{"./data/3dstdb.txt", "./data/dstdb.txt"}, "Game-name database files")
	flags.String("cert", "", "Path to the TLS certificate file")
	flags.String("key", "", "Path to the TLS key file")
	flags.String("update-owner", "pepasjc", "GitHub owner for client release lookups")
	flags.String("update-repo", "3ds_sync", "GitHub repo for client release lookups")

	viper.SetEnvPrefix("SAVESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)
}

func main() {
	// optional .env next to the binary, real env wins
	_ = godotenv.Load()

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
