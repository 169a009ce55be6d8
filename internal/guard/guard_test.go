package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/models"
)

var (
	admin      = &models.User{ID: "1", Role: models.RoleAdmin}
	affiliator = &models.User{ID: "2", Role: models.RoleAffiliator}
)

func testRouter() *Router {
	return NewRouter(
		Route{Path: LoginPath, Public: true},
		Route{Path: "/admin/customers", Roles: []models.Role{models.RoleAdmin}},
		Route{Path: "/affiliator/payments", Roles: []models.Role{models.RoleAffiliator}},
		Route{Path: "/profile"},
	)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		user     *models.User
		allow    bool
		redirect string
		reason   error
	}{
		{name: "anonymous on protected route", path: "/admin/customers", user: nil, redirect: LoginPath, reason: ErrLoginRequired},
		{name: "admin on admin route", path: "/admin/customers", user: admin, allow: true},
		{name: "affiliator on admin route", path: "/admin/customers/", user: affiliator, redirect: AffiliatorHome, reason: ErrForbidden},
		{name: "admin on affiliator route", path: "affiliator/payments", user: admin, redirect: AdminHome, reason: ErrForbidden},
		{name: "any role route", path: "/profile", user: affiliator, allow: true},
		{name: "anonymous on login", path: LoginPath, user: nil, allow: true},
		{name: "logged in on login", path: LoginPath, user: affiliator, redirect: AffiliatorHome},
	}

	router := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, d, err := router.Resolve(tt.path, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, d.Allow)
			assert.Equal(t, tt.redirect, d.Redirect)
			assert.ErrorIs(t, d.Reason, tt.reason)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	_, _, err := testRouter().Resolve("/nope", admin)
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestVisible(t *testing.T) {
	router := testRouter()
	assert.Empty(t, router.Visible(nil))

	paths := func(routes []Route) []string {
		out := make([]string, len(routes))
		for i, r := range routes {
			out[i] = r.Path
		}
		return out
	}
	assert.Equal(t, []string{"/admin/customers", "/profile"}, paths(router.Visible(admin)))
	assert.Equal(t, []string{"/affiliator/payments", "/profile"}, paths(router.Visible(affiliator)))
}
