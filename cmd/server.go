package cmd

import (
	"context"
	"os"
	"time"

	"github.com/plugward/plugward/internal/conf"
	"github.com/plugward/plugward/internal/dbcore"
	"github.com/plugward/plugward/internal/plugin"
	"github.com/plugward/plugward/internal/scheduler"
	"github.com/plugward/plugward/internal/security"
	"github.com/plugward/plugward/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gateway",
	Long:  `Start the plugin security gateway`,
	Run: func(cmd *cobra.Command, args []string) {
		fxApp := fx.New(
			conf.FxModule(),
			dbcore.FxModule(),
			security.FxModule(),
			plugin.FxModule(),
			server.FxModule(),
			scheduler.FxModule(),
			fx.NopLogger,
		)
		if err := runFxUntilSignal(context.Background(), fxApp, 5*time.Second); err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(ServerCmd)
}
