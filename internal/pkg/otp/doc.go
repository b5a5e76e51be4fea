// Package otp verifies time-based one-time passwords (RFC 6238) against a
// single shared secret and builds the otpauth:// URI used to enroll it in an
// authenticator app.
package otp
