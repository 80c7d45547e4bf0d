package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: GOCUSTODY_REDIS_URL overrides redis.url.
const EnvPrefix = "GOCUSTODY"

var ErrMissingConfigType = errors.New("config: config type is required")

// Viper reads configuration through spf13/viper. Values are looked up on every
// call, so a reloaded file takes effect without restarting.
type Viper struct {
	v *viper.Viper
}

func baseViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewViper reads the file at file and watches it for changes. The format
// follows the extension.
func NewViper(file string) (*Viper, error) {
	v := baseViper()
	v.SetConfigFile(filepath.Clean(file))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(ev fsnotify.Event) {
		slog.Info("config reloaded", "path", ev.Name, "op", ev.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes reads configuration of the given format ("yaml", "json", "toml") from memory.
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, ErrMissingConfigType
	}

	v := baseViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (c *Viper) SetDefault(key string, value any) { c.v.SetDefault(key, value) }

func (c *Viper) GetInt(key string) int { return c.v.GetInt(key) }
func (c *Viper) GetInt32(key string) int32 { return c.v.GetInt32(key) }
func (c *Viper) GetUint(key string) uint { return c.v.GetUint(key) }
func (c *Viper) GetBool(key string) bool { return c.v.GetBool(key) }
func (c *Viper) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }
func (c *Viper) GetString(key string) string { return c.v.GetString(key) }
func (c *Viper) GetSecond(key string) time.Duration { return c.duration(key, time.Second) }
func (c *Viper) GetMinute(key string) time.Duration { return c.duration(key, time.Minute) }

func (c *Viper) duration(key string, unit time.Duration) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * unit
}

// GetBinary returns nil when the value is not valid standard base64.
func (c *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(c.v.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

func (c *Viper) GetArray(key string) []string {
	raw := c.v.GetStringSlice(key)
	if _, isList := c.v.Get(key).([]any); !isList {
		raw = strings.Split(c.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(raw, func(s string, _ int) string { return strings.TrimSpace(s) }))
}

// Close satisfies io.Closer; the file watcher lives for the process.
func (c *Viper) Close() error { return nil }
