package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
)

// defaultConfigTemplate 初始配置模板
const defaultConfigTemplate = `version: "1.0"

gugubot:
  command_prefix: "#"
  bot_name: "GUGUBot"
  # 为 true 时只有管理员能触发命令
  group_admin: false

log:
  level: info
  format: console
  file: ""

connector:
  qq:
    source_name: QQ
    enable: true
    enable_send: true
    enable_receive: true
    ws_url: ws://127.0.0.1:8080
    # 其他平台消息转发到的 QQ 群
    group_ids: []
    permissions:
      admin_ids: []
      admin_group_ids: []
  minecraft:
    source_name: Minecraft
    enable: true
    enable_send: true
    enable_receive: true
  minecraft_bridge:
    source_name: Bridge
    enable: true
    enable_send: true
    # 桥接端默认只作回程通道，普通转发经 minecraft 连接器投递
    enable_receive: false
    ws_url: ws://127.0.0.1:8081

system:
  echo:
    enable: true
  cross_broadcast:
    enable: true
    mc_command: mc
    qq_command: "!!qq"
  bound_notice:
    enable: false

schedule:
  enable: false
  announcements: []
  # - name: daily
  #   cron: "0 8 * * *"
  #   message: 早上好
  #   targets: [QQ, Minecraft]

status:
  enable: true
  host: 127.0.0.1
  port: 18799

storage:
  path: ""

style:
  file: ""

i18n:
  locale: zh_cn
  dir: ""
`

// NewInitCmd 创建 init 命令
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigPath
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0600); err != nil {
				return err
			}

			fmt.Printf("配置已写入 %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
