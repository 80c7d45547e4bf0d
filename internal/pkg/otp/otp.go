package otp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrEmptySecret is returned when a code is requested for an empty seed.
var ErrEmptySecret = errors.New("otp: secret is empty")

// OTP defines the contract for TOTP code generation.
type OTP interface {
	// GenerateCode creates the code of the window containing at.
	GenerateCode(secret string, at time.Time) (string, error)
	// GenerateCodeAt creates the code of the window offset steps away from the one containing at.
	GenerateCodeAt(secret string, at time.Time, offset int) (string, error)
	// Period is the width of one window.
	Period() time.Duration
	// Skew is the number of adjacent windows accepted on each side.
	Skew() uint
}

// TOTP implements OTP using the Time-based One-Time Password algorithm (RFC 6238).
type TOTP struct {
	period uint
	skew   uint
	digits otp.Digits
	algo   otp.Algorithm
}

// NewTOTP constructs a TOTP instance with sensible defaults.
//
// If digits is not 6 or 8, it falls back to 6 digits. If period is 0, it uses
// the common 30-second period.
func NewTOTP(period, skew uint, digits otp.Digits) *TOTP {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	if period == 0 {
		period = 30
	}

	return &TOTP{
		period: period,
		skew:   skew,
		digits: digits,
		algo:   otp.AlgorithmSHA1,
	}
}

// GenerateCode creates a TOTP code for the given secret and time.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return o.GenerateCodeAt(secret, at, 0)
}

// GenerateCodeAt creates the TOTP code offset windows away from at.
func (o *TOTP) GenerateCodeAt(secret string, at time.Time, offset int) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	shifted := at.Add(time.Duration(offset) * o.Period())

	return totp.GenerateCodeCustom(secret, shifted, totp.ValidateOpts{
		Period:    o.period,
		Digits:    o.digits,
		Algorithm: o.algo,
	})
}

// Period returns the window width.
func (o *TOTP) Period() time.Duration {
	return time.Duration(o.period) * time.Second
}

// Skew returns the accepted number of windows on each side of the current one.
func (o *TOTP) Skew() uint {
	return o.skew
}
