package entity

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// QRCodeSuffix is appended to the route prefix to form the QR-code path.
	QRCodeSuffix = "/qr-code"
	// VerifySuffix is appended to the route prefix to form the verify path.
	VerifySuffix = "/verify"
	// HealthPath is served outside the prefix for probes.
	HealthPath = "/health"
)

// ErrRouteCollision is returned when two gate routes resolve to the same path.
var ErrRouteCollision = errors.New("gate: routes collide")

// Routes is the fixed set of paths the gate owns.
type Routes struct {
	Prefix      string
	QRCode      string
	Verify      string
	Destination string
}

// NewRoutes builds the route table from a prefix and an optional destination
// override. An empty redirectTo sends verified clients to prefix + "/".
func NewRoutes(prefix, redirectTo string) (Routes, error) {
	prefix = normalizePrefix(prefix)

	rt := Routes{
		Prefix:      prefix,
		QRCode:      prefix + QRCodeSuffix,
		Verify:      prefix + VerifySuffix,
		Destination: prefix + "/",
	}
	if d := strings.TrimSpace(redirectTo); d != "" {
		rt.Destination = d
	}

	seen := map[string]string{}
	for name, p := range map[string]string{
		"qr_code":     rt.QRCode,
		"verify":      rt.Verify,
		"destination": stripQuery(rt.Destination),
		"health":      HealthPath,
	} {
		if other, ok := seen[p]; ok {
			return Routes{}, fmt.Errorf("%w: %s and %s both resolve to %s", ErrRouteCollision, name, other, p)
		}
		seen[p] = name
	}

	return rt, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return ""
	}
	return strings.TrimSuffix(path.Clean("/"+prefix), "/")
}

func stripQuery(p string) string {
	p, _, _ = strings.Cut(p, "?")
	p, _, _ = strings.Cut(p, "#")
	return p
}
