// Package policy decides which routes an unauthenticated client may reach,
// backed by an in-memory casbin enforcer.
package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

// Anonymous is the subject used for requests without a verified session.
const Anonymous = "anonymous"

const accessModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// ErrEmptyRule is returned when a rule lacks a path or methods.
var ErrEmptyRule = errors.New("policy: rule needs a path and at least one method")

// Policy answers whether a subject may call method on path.
type Policy interface {
	Allow(subject, method, path string) bool
}

// Rule grants a subject access to a path pattern for the listed methods.
// Path follows casbin keyMatch2 syntax, e.g. "/assets/*" or "/u/:name".
type Rule struct {
	Subject string
	Path    string
	Methods []string
}

// Enforcer implements Policy with casbin.
type Enforcer struct {
	e *casbin.Enforcer
}

// New builds an enforcer preloaded with rules.
func New(rules ...Rule) (*Enforcer, error) {
	m, err := model.NewModelFromString(accessModel)
	if err != nil {
		return nil, fmt.Errorf("policy: model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("policy: enforcer: %w", err)
	}

	for _, r := range rules {
		if r.Path == "" || len(r.Methods) == 0 {
			return nil, ErrEmptyRule
		}
		sub := r.Subject
		if sub == "" {
			sub = Anonymous
		}
		if _, err := e.AddPolicy(sub, r.Path, methodPattern(r.Methods)); err != nil {
			return nil, fmt.Errorf("policy: add %s %s: %w", sub, r.Path, err)
		}
	}

	return &Enforcer{e: e}, nil
}

// Allow reports whether subject may call method on path. Enforcement errors deny.
func (p *Enforcer) Allow(subject, method, path string) bool {
	ok, err := p.e.Enforce(subject, path, method)
	if err != nil {
		slog.Warn("policy enforce failed", "subject", subject, "method", method, "path", path, "error", err)
		return false
	}
	return ok
}

func methodPattern(methods []string) string {
	upper := make([]string, 0, len(methods))
	for _, m := range methods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			upper = append(upper, m)
		}
	}
	return "^(" + strings.Join(upper, "|") + ")$"
}
