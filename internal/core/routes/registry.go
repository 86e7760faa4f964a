// Package routes holds the static route access table: which roles may enter
// which route prefixes, and where to send everyone else.
package routes

import (
	"strings"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// DefaultUnauthorizedPath is returned by RedirectPath when a matched rule
// carries no redirect of its own.
const DefaultUnauthorizedPath = "/dashboard/unauthorized"

// Rule maps a route prefix to the roles allowed under it, plus the path to
// redirect disallowed callers to.
type Rule struct {
	Prefix   string
	Roles    []domain.Role
	Redirect string
}

// Registry answers access questions for navigable paths. It is immutable
// after construction; lookups are read-only and safe for concurrent use.
type Registry struct {
	rules []compiledRule
}

type compiledRule struct {
	segments []string
	allowed  map[domain.Role]struct{}
	redirect string
}

// NewRegistry compiles the given rules. Prefixes are tokenized into path
// segments so that matching compares whole segments, never raw string
// prefixes: "/dashboard/settings" does not match "/dashboard/settings2".
func NewRegistry(rules []Rule) *Registry {
	r := &Registry{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		allowed := make(map[domain.Role]struct{}, len(rule.Roles))
		for _, role := range rule.Roles {
			allowed[role] = struct{}{}
		}
		r.rules = append(r.rules, compiledRule{
			segments: splitPath(rule.Prefix),
			allowed:  allowed,
			redirect: rule.Redirect,
		})
	}
	return r
}

// DefaultRules is the route table for the dispatch dashboard.
func DefaultRules() []Rule {
	all := []domain.Role{domain.RoleAdmin, domain.RoleDispatcher, domain.RoleDriver, domain.RoleCustomer}
	return []Rule{
		{Prefix: "/dashboard/admin", Roles: []domain.Role{domain.RoleAdmin}, Redirect: DefaultUnauthorizedPath},
		{Prefix: "/dashboard/dispatch", Roles: []domain.Role{domain.RoleAdmin, domain.RoleDispatcher}, Redirect: DefaultUnauthorizedPath},
		{Prefix: "/dashboard/driver", Roles: []domain.Role{domain.RoleAdmin, domain.RoleDriver}, Redirect: DefaultUnauthorizedPath},
		{Prefix: "/dashboard/billing", Roles: []domain.Role{domain.RoleAdmin, domain.RoleCustomer}, Redirect: DefaultUnauthorizedPath},
		{Prefix: "/dashboard/loads", Roles: all, Redirect: DefaultUnauthorizedPath},
		{Prefix: "/dashboard", Roles: all, Redirect: "/sign-in"},
	}
}

// CanAccess reports whether role may proceed to path. Among all rules whose
// segment sequence prefixes the path, the one with the most segments wins.
// An unmatched path is allowed; an empty or unrecognized role never passes
// a matched rule.
func (r *Registry) CanAccess(path string, role domain.Role) bool {
	rule := r.match(path)
	if rule == nil {
		return true
	}
	if !role.Valid() {
		return false
	}
	_, ok := rule.allowed[role]
	return ok
}

// RedirectPath returns where a disallowed caller of path should be sent:
// the matched rule's redirect target, or DefaultUnauthorizedPath when no
// rule matches or the rule has no redirect configured.
func (r *Registry) RedirectPath(path string) string {
	rule := r.match(path)
	if rule == nil || rule.redirect == "" {
		return DefaultUnauthorizedPath
	}
	return rule.redirect
}

// match selects the rule with the greatest segment count among those that
// prefix path. Segment-count comparison keeps the tie-break deterministic
// regardless of registration order.
func (r *Registry) match(path string) *compiledRule {
	segs := splitPath(path)
	var best *compiledRule
	for i := range r.rules {
		rule := &r.rules[i]
		if !segmentsPrefix(rule.segments, segs) {
			continue
		}
		if best == nil || len(rule.segments) > len(best.segments) {
			best = rule
		}
	}
	return best
}

func segmentsPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
