package cmd

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/gookit/event"
	"github.com/plugward/plugward/cmd/flags"
	"github.com/plugward/plugward/internal/eventType"

	"github.com/spf13/cobra"
)

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

var (
	configFileEnv = GetEnv("PLUGWARD_CONFIG_FILE", "./data/plugward.json")
)

var RootCmd = &cobra.Command{
	Use:   "plugward",
	Short: "Plugward is a plugin security gateway",
	Long: `Plugward validates, verifies and sandboxes declarative plugin
manifests before their code is allowed to run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetArgs([]string{"server"})
		cmd.Execute()
	},
}

func Execute() {
	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		slog.Error("Failed to create data directory", slog.Any("error", err))
	}
	err, _ := event.Trigger(eventType.ProcessStart, event.M{})
	if err != nil {
		slog.Error("Something went wrong during process start.", slog.Any("error", err))
		os.Exit(1)
	}
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", configFileEnv, "Configuration file path [env: PLUGWARD_CONFIG_FILE]")
	RootCmd.PersistentFlags().StringVarP(&flags.Listen, "listen", "l", GetEnv("PLUGWARD_LISTEN", ""), "Listen address [env: PLUGWARD_LISTEN]")
}
