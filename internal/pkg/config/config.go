package config

import (
	"io"
	"time"
)

// Config retrieves typed configuration values by dotted key
// (for example "modules.challenge.ttl_seconds").
//
// A missing key or a value that cannot be converted yields the zero value;
// callers that need a value validate it where they consume it.
type Config interface {
	io.Closer

	// GetSecond reads an integer and interprets it as seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer and interprets it as minutes.
	GetMinute(key string) time.Duration

	GetInt(key string) int
	GetInt32(key string) int32
	GetUint(key string) uint
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads either a list or a comma separated string. Entries are
	// trimmed and empty entries dropped.
	GetArray(key string) []string
}
