// Package i18n provides translation lookup with optional style overrides.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Translator 翻译提供者
type Translator struct {
	entries map[string]string
	mu      sync.RWMutex
}

// builtin 内置 zh_cn 文案，locale 文件缺失时兜底
var builtin = map[string]string{
	"gugubot.bot_name":        "咕咕机器人",
	"gugubot.enable":          "开启",
	"gugubot.disable":         "关闭",
	"gugubot.enable_success":  "已开启",
	"gugubot.disable_success": "已关闭",

	"gugubot.system.echo.name":            "转发",
	"gugubot.system.cross_broadcast.name": "跨服",
	"gugubot.system.bound_notice.name":    "绑定提醒",
	"gugubot.system.bound.name":           "绑定",

	"gugubot.system.bound_notice.notice_message": " 您还未绑定游戏 ID，请发送 {command_prefix}{bound_name} <游戏ID> 完成绑定",
}

// NewTranslator 创建翻译提供者。
//
// dir 非空时尝试加载 <dir>/<locale>.yml，加载到的键覆盖内置文案。
func NewTranslator(dir, locale string) (*Translator, error) {
	entries := make(map[string]string, len(builtin))
	for k, v := range builtin {
		entries[k] = v
	}

	if dir != "" {
		path := filepath.Join(dir, locale+".yml")
		loaded, err := loadYAMLFile(path)
		if err != nil {
			return nil, fmt.Errorf("load locale %s: %w", path, err)
		}
		for k, v := range loaded {
			entries[k] = v
		}
	}

	return &Translator{entries: entries}, nil
}

// Tr 查找翻译并插值，未找到时返回 key 本身
func (t *Translator) Tr(key string, kwargs map[string]string) string {
	t.mu.RLock()
	text, ok := t.entries[key]
	t.mu.RUnlock()
	if !ok {
		return key
	}
	return interpolate(text, kwargs)
}

// interpolate 替换 {name} 形式的占位符
func interpolate(text string, kwargs map[string]string) string {
	if len(kwargs) == 0 {
		return text
	}
	pairs := make([]string, 0, len(kwargs)*2)
	for k, v := range kwargs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// loadYAMLFile 读取 YAML 文件并压平为点分键
func loadYAMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	flat := make(map[string]string)
	flatten("", raw, flat)
	return flat, nil
}

// flatten 递归压平嵌套映射，键用点拼接
func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch value := v.(type) {
		case map[string]any:
			flatten(key, value, out)
		case string:
			out[key] = value
		default:
			out[key] = fmt.Sprintf("%v", value)
		}
	}
}
