// Package uid generates identifiers for challenges, requests and audit events.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}
