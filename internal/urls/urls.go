// Package urls carries the "next" redirect parameter between pages and decides whether a
// submitted redirect target is a path this application serves.
package urls

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// NextParam is the query parameter holding the page to return to.
const NextParam = "next"

// SuccessURLField is the form field carrying the redirect target of a POST.
const SuccessURLField = "success_url"

// RemoveQueryString drops the query part of raw. Unparseable input is returned unchanged.
func RemoveQueryString(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String()
}

// RemoveNextURL drops the next parameter from raw and keeps every other parameter.
func RemoveNextURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Del(NextParam)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConcatNextURL appends next to target as an escaped query parameter.
func ConcatNextURL(target, next string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + NextParam + "=" + url.QueryEscape(next)
}

// InheritNextURL forwards the next parameter of current onto target. When that next page
// itself carries a next parameter, the innermost one wins so chains never nest.
func InheritNextURL(target, current string) string {
	cu, err := url.Parse(current)
	if err != nil {
		return target
	}
	next := cu.Query().Get(NextParam)
	if next == "" {
		return target
	}
	if nu, err := url.Parse(next); err == nil {
		if inner := nu.Query().Get(NextParam); inner != "" {
			next = inner
		}
	}
	return ConcatNextURL(target, next)
}

// Resolver reports whether a path is served by the application.
type Resolver interface {
	Resolve(path string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path string) bool

// Resolve calls f.
func (f ResolverFunc) Resolve(path string) bool { return f(path) }

// RouteResolver matches paths against a chi route tree.
type RouteResolver struct {
	routes chi.Routes
}

// NewRouteResolver builds a resolver over routes. The tree may still be under construction:
// it is consulted only when Resolve runs.
func NewRouteResolver(routes chi.Routes) *RouteResolver {
	return &RouteResolver{routes: routes}
}

// Resolve reports whether a GET of path would reach a handler. Only absolute local paths qualify.
func (r *RouteResolver) Resolve(path string) bool {
	if r == nil || r.routes == nil || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return false
	}
	return r.routes.Match(chi.NewRouteContext(), http.MethodGet, path)
}

// SafeRedirect returns candidate when its path, query removed, resolves; otherwise fallback.
func SafeRedirect(res Resolver, candidate, fallback string) string {
	if candidate == "" || res == nil {
		return fallback
	}
	if res.Resolve(RemoveQueryString(candidate)) {
		return candidate
	}
	return fallback
}
