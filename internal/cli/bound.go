package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xieyuen/PF-GUGUBot/internal/bound"
	"github.com/xieyuen/PF-GUGUBot/internal/config"
)

// NewBoundCmd 创建 bound 命令组，管理玩家绑定
func NewBoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bound",
		Short: "Manage player bindings",
	}

	cmd.AddCommand(newBoundListCmd())
	cmd.AddCommand(newBoundAddCmd())
	cmd.AddCommand(newBoundRemoveCmd())

	return cmd
}

// openStore 按配置打开绑定存储
func openStore() (*bound.Store, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	path := cfg.GetKeysString("", "storage", "path")
	if path == "" {
		path, err = config.DefaultDataPath()
		if err != nil {
			return nil, err
		}
	}
	return bound.Open(path)
}

// configPath 解析配置文件路径
func configPath() string {
	if globalFlags.ConfigPath != "" {
		return globalFlags.ConfigPath
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func newBoundListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all player bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			players, err := store.List()
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Println("暂无绑定")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLAYER\tSENDER\tPLATFORM\tBOUND AT")
			for _, p := range players {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.Name, p.SenderID, p.Platform, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newBoundAddCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "add <sender-id> <player-name>",
		Short: "Bind a sender to a player name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Bind(args[0], platform, args[1]); err != nil {
				return err
			}
			fmt.Printf("已绑定 %s -> %s (%s)\n", args[0], args[1], platform)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "QQ", "platform of the sender")

	return cmd
}

func newBoundRemoveCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "remove <sender-id>",
		Short: "Remove a player binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Unbind(args[0], platform); err != nil {
				return err
			}
			fmt.Printf("已解除 %s (%s) 的绑定\n", args[0], platform)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "QQ", "platform of the sender")

	return cmd
}
