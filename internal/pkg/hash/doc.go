// Package hash provides keyed digests for values that must be compared or
// stored without keeping the plaintext, such as one-time codes remembered by
// the replay guard.
package hash
