// Package session keeps a small string key/value map in a single client-side
// cookie. The map travels as HS512-signed JWT claims sealed with AES-256-GCM,
// so clients can neither read nor forge it. Nothing is stored server side.
//
// A cookie that is missing, expired, tampered with or sealed under a different
// secret reads as an empty session; decoding never surfaces an error.
package session
