// Package otp generates time-based one-time codes (TOTP) from a guardian's
// seed, for the current window or for a neighbouring one.
//
// Enrollment (seed generation, provisioning URIs) is handled elsewhere; this
// package only derives codes.
package otp
