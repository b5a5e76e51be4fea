// Package clock provides a tiny time abstraction.
//
// TOTP windows, session expiry and replay TTLs all read time through the
// Clocker interface, so tests can pin the current instant with a Frozen clock
// and step across window boundaries deterministically.
package clock
