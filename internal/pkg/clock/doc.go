// Package clock provides a tiny time abstraction.
//
// Challenge expiry and TOTP windows are computed from a Clocker instead of
// time.Now, so tests can pin the instant a challenge is issued and move past
// its deadline deterministically with Manual.
package clock
