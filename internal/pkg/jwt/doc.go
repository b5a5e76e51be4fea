// Package jwt signs and verifies the HS512 tokens that carry session values,
// and moves verified claims through a request context.
package jwt
