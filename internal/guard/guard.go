// Package guard decides whether the current user may open a console route
// and where to send them otherwise.
package guard

import (
	"errors"
	"sort"
	"strings"

	"affconsole/internal/models"
)

const (
	LoginPath      = "/login"
	AdminHome      = "/admin"
	AffiliatorHome = "/affiliator"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrForbidden     = errors.New("role not allowed")
	ErrUnknownRoute  = errors.New("unknown route")
)

// Route is a console page. Public routes skip the session check; otherwise
// an empty Roles list admits any logged-in user.
type Route struct {
	Path   string
	Title  string
	Public bool
	Roles  []models.Role
}

func (r Route) allows(role models.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Decision is the outcome of a guard check. When Allow is false, Redirect
// names the route to open instead and Reason says why.
type Decision struct {
	Allow    bool
	Redirect string
	Reason   error
}

// Home is the landing route of a role.
func Home(role models.Role) string {
	if role == models.RoleAffiliator {
		return AffiliatorHome
	}
	return AdminHome
}

// Check evaluates route for user; a nil user means no session.
func Check(route Route, user *models.User) Decision {
	if route.Public {
		if user != nil && route.Path == LoginPath {
			return Decision{Redirect: Home(user.Role)}
		}
		return Decision{Allow: true}
	}
	if user == nil {
		return Decision{Redirect: LoginPath, Reason: ErrLoginRequired}
	}
	if !route.allows(user.Role) {
		return Decision{Redirect: Home(user.Role), Reason: ErrForbidden}
	}
	return Decision{Allow: true}
}

// Router holds the known routes.
type Router struct {
	routes map[string]Route
}

func NewRouter(routes ...Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes))}
	for _, route := range routes {
		r.routes[normalize(route.Path)] = route
	}
	return r
}

// Resolve looks up path and checks it for user.
func (r *Router) Resolve(path string, user *models.User) (Route, Decision, error) {
	route, ok := r.routes[normalize(path)]
	if !ok {
		return Route{}, Decision{}, ErrUnknownRoute
	}
	return route, Check(route, user), nil
}

// Visible lists the routes user may open, sorted by path.
func (r *Router) Visible(user *models.User) []Route {
	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		if route.Public {
			continue
		}
		if Check(route, user).Allow {
			out = append(out, route)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func normalize(path string) string {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	return path
}
