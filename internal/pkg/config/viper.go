package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrConfigTypeRequired is returned by NewViperFromBytes when no format is given.
var ErrConfigTypeRequired = errors.New("config: type is required")

// Option adjusts the underlying viper instance before any source is read.
type Option func(v *viper.Viper)

// WithDefaults registers values used when neither the file nor the
// environment sets a key.
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for key, value := range defaults {
			v.SetDefault(key, value)
		}
	}
}

// WithEnvAliases binds additional environment variables to a key. The
// first one that is set wins.
func WithEnvAliases(aliases map[string][]string) Option {
	return func(v *viper.Viper) {
		for key, envs := range aliases {
			//nolint:errcheck // only fails for an empty key list
			_ = v.BindEnv(append([]string{key}, envs...)...)
		}
	}
}

// Viper implements Config on top of spf13/viper. Every key may be overridden
// by its upper-cased, underscore-separated environment name, so totp.secret
// reads TOTP_SECRET.
type Viper struct {
	v *viper.Viper
}

func build(opts []Option) *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// NewViper reads file and watches it for changes. A file that does not exist
// is tolerated so the process can run from the environment alone.
func NewViper(file string, opts ...Option) (*Viper, error) {
	v := build(opts)
	v.SetConfigFile(file)

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist), errors.As(err, &notFound):
		slog.Warn("config file not found, reading environment only", "path", file)
		return &Viper{v: v}, nil
	default:
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes reads data in the given format ("yaml", "json", ...).
func NewViperFromBytes(format string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(format) == "" {
		return nil, ErrConfigTypeRequired
	}

	v := build(opts)
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &Viper{v: v}, nil
}

func (c *Viper) GetString(key string) string   { return c.v.GetString(key) }
func (c *Viper) GetBool(key string) bool       { return c.v.GetBool(key) }
func (c *Viper) GetInt(key string) int         { return c.v.GetInt(key) }
func (c *Viper) GetUint(key string) uint       { return c.v.GetUint(key) }
func (c *Viper) GetUint64(key string) uint64   { return c.v.GetUint64(key) }
func (c *Viper) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

func (c *Viper) GetSecond(key string) time.Duration { return c.scaled(key, time.Second) }
func (c *Viper) GetMinute(key string) time.Duration { return c.scaled(key, time.Minute) }
func (c *Viper) GetHour(key string) time.Duration   { return c.scaled(key, time.Hour) }

func (c *Viper) scaled(key string, unit time.Duration) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * unit
}

func (c *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(c.v.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

func (c *Viper) GetArray(key string) []string {
	var items []string
	if list, ok := c.v.Get(key).([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	} else {
		items = strings.Split(c.v.GetString(key), ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Close is a no-op; viper offers no way to stop the file watcher.
func (c *Viper) Close() error {
	return nil
}
