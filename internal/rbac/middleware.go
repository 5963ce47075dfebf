package rbac

import (
	"context"
	"net/http"
)

type roleKey struct{}

func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(roleKey{}).(Role)
	return role
}

// guard lets a request through when its role passes allowed.
func guard(allowed func(Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !allowed(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require enforces a single permission.
func Require(perm Permission) func(http.Handler) http.Handler {
	return guard(func(role Role) bool { return DefaultPolicy.Allows(role, perm) })
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return guard(func(role Role) bool { return DefaultPolicy.AllowsAny(role, perms...) })
}

// RequireAll enforces that the role has all of the permissions.
func RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return guard(func(role Role) bool { return DefaultPolicy.AllowsAll(role, perms...) })
}
