package config

import "github.com/spf13/viper"

// setDefaults 设置所有配置项的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	// GUGUBot 全局配置
	v.SetDefault("gugubot.command_prefix", "#")
	v.SetDefault("gugubot.group_admin", false)
	v.SetDefault("gugubot.bot_name", "GUGUBot")

	// Log 配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	// 连接器配置
	v.SetDefault("connector.qq.source_name", "QQ")
	v.SetDefault("connector.qq.enable", true)
	v.SetDefault("connector.qq.enable_send", true)
	v.SetDefault("connector.qq.enable_receive", true)
	v.SetDefault("connector.qq.ws_url", "ws://127.0.0.1:8080")
	v.SetDefault("connector.qq.group_ids", []string{})
	v.SetDefault("connector.qq.permissions.admin_ids", []string{})
	v.SetDefault("connector.qq.permissions.admin_group_ids", []string{})

	v.SetDefault("connector.minecraft.source_name", "Minecraft")
	v.SetDefault("connector.minecraft.enable", true)
	v.SetDefault("connector.minecraft.enable_send", true)
	v.SetDefault("connector.minecraft.enable_receive", true)

	v.SetDefault("connector.minecraft_bridge.source_name", "Bridge")
	v.SetDefault("connector.minecraft_bridge.enable", true)
	v.SetDefault("connector.minecraft_bridge.enable_send", true)
	// 桥接端默认只作回程通道，普通转发经 minecraft 连接器投递
	v.SetDefault("connector.minecraft_bridge.enable_receive", false)
	v.SetDefault("connector.minecraft_bridge.ws_url", "ws://127.0.0.1:8081")

	// 系统配置
	v.SetDefault("system.echo.enable", true)
	v.SetDefault("system.cross_broadcast.enable", true)
	v.SetDefault("system.cross_broadcast.mc_command", "mc")
	v.SetDefault("system.cross_broadcast.qq_command", "!!qq")
	v.SetDefault("system.bound_notice.enable", false)

	// 定时公告配置
	v.SetDefault("schedule.enable", false)
	v.SetDefault("schedule.announcements", []map[string]any{})

	// 状态服务配置
	v.SetDefault("status.enable", true)
	v.SetDefault("status.host", "127.0.0.1")
	v.SetDefault("status.port", 18799)

	// 存储配置
	v.SetDefault("storage.path", "")

	// 风格（翻译覆盖）配置
	v.SetDefault("style.file", "")
	v.SetDefault("i18n.locale", "zh_cn")
	v.SetDefault("i18n.dir", "")
}
