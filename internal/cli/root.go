// Package cli implements the gugubot command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gugubot",
		Short: "GUGUBot - QQ/Minecraft message relay",
		Long: `GUGUBot relays chat messages between QQ groups and Minecraft servers.
It connects to a OneBot endpoint and one or more server bridges, and
routes messages through its forwarding systems.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "quiet mode")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewBoundCmd())

	return rootCmd
}

// logLevel 根据全局标志确定日志级别
func logLevel(configured string) string {
	if globalFlags.Verbose {
		return "debug"
	}
	if globalFlags.Quiet {
		return "error"
	}
	return configured
}
