// Package config reads process configuration from a YAML file overlaid by
// environment variables.
package config

import (
	"io"
	"time"
)

// Config is a read-only key/value view. Keys are dotted paths
// ("totp.secret"); missing or malformed values read as the zero value.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetUint(key string) uint
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	// GetSecond, GetMinute and GetHour scale an integer into a duration.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetBinary decodes a standard base64 value; nil when missing or invalid.
	GetBinary(key string) []byte

	// GetArray accepts a YAML list or a comma separated string and drops
	// blank elements.
	GetArray(key string) []string
}
