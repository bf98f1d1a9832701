// Package config provides the viper-backed configuration store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SupportedMajor 当前支持的配置 schema 主版本
const SupportedMajor = 1

// ErrPathNotSet 配置未绑定文件路径时持久化返回此错误
var ErrPathNotSet = errors.New("config path not set")

// Config 配置存储，包装独立的 viper 实例。
//
// 与全局 viper 不同，每个 Config 自带实例，便于按依赖注入构造和测试。
type Config struct {
	v    *viper.Viper
	path string
	mu   sync.Mutex
}

// Load 读取配置文件并应用默认值。文件不存在时仅使用默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		path = expanded

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, err
			}
			if !os.IsNotExist(err) {
				var pathErr *os.PathError
				if !errors.As(err, &pathErr) {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{v: v, path: path}
	if err := cfg.checkVersion(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkVersion 校验配置 schema 版本，主版本高于当前支持范围时拒绝加载
func (c *Config) checkVersion() error {
	raw := c.v.GetString("version")
	if raw == "" {
		return nil
	}

	ver, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("parse config version %q: %w", raw, err)
	}
	if ver.Major() > SupportedMajor {
		return fmt.Errorf("config version %s requires a newer release (supported major: %d)", raw, SupportedMajor)
	}
	return nil
}

// Path 返回配置文件路径
func (c *Config) Path() string {
	return c.path
}

// Key 将路径段拼接为 viper 键
func Key(parts ...string) string {
	return strings.Join(parts, ".")
}

// GetString 获取字符串配置值，未设置时返回默认值
func (c *Config) GetString(key, def string) string {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetString(key)
}

// GetBool 获取布尔配置值，未设置时返回默认值
func (c *Config) GetBool(key string, def bool) bool {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetBool(key)
}

// GetInt 获取整数配置值，未设置时返回默认值
func (c *Config) GetInt(key string, def int) int {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// GetStringSlice 获取字符串列表配置值
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetKeysString 按路径段获取字符串配置值
func (c *Config) GetKeysString(def string, parts ...string) string {
	return c.GetString(Key(parts...), def)
}

// GetKeysBool 按路径段获取布尔配置值
func (c *Config) GetKeysBool(def bool, parts ...string) bool {
	return c.GetBool(Key(parts...), def)
}

// GetKeysStringSlice 按路径段获取字符串列表配置值
func (c *Config) GetKeysStringSlice(parts ...string) []string {
	return c.GetStringSlice(Key(parts...))
}

// UnmarshalKey 将指定键下的配置反序列化到结构体
func (c *Config) UnmarshalKey(key string, out any) error {
	return c.v.UnmarshalKey(key, out)
}

// Set 设置配置值并持久化。
//
// 持久化失败时返回错误，调用方据此决定是否回滚内存状态。
func (c *Config) Set(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.v.Set(key, value)
	if c.path == "" {
		return nil
	}
	return c.save()
}

// Save 保存全部配置到文件
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

// save 内部保存函数，调用者需要持有锁
func (c *Config) save() error {
	if c.path == "" {
		return ErrPathNotSet
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c.v.AllSettings())
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}
