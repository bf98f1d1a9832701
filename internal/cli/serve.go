package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xieyuen/PF-GUGUBot/internal/app"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

// NewServeCmd 创建 serve 命令
func NewServeCmd() *cobra.Command {
	var storagePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay bot",
		Long: `Start the relay bot.

This connects to the configured OneBot endpoint and server bridges,
starts the forwarding systems, and serves the status endpoint.`,
		Example: `  # Start with the default configuration
  gugubot serve

  # Start with a custom config file
  gugubot serve --config ./config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(storagePath)
		},
	}

	cmd.Flags().StringVar(&storagePath, "storage", "", "binding database path (overrides config)")

	return cmd
}

func runServe(storagePath string) error {
	bot, err := app.New(app.Options{
		ConfigPath:  globalFlags.ConfigPath,
		StoragePath: storagePath,
		LogLevel:    logLevel(""),
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := bot.Start(); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	log := logger.Get()
	log.Info().Msg("GUGUBot 已启动，Ctrl+C 退出")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("正在关闭...")
	return bot.Stop()
}
