package auth

import (
	"context"

	"github.com/mind-engage/mindengage-loader/internal/rbac"
)

// Operator is the authenticated caller of the gateway.
type Operator struct {
	Subject string
	Role    rbac.Role
}

type operatorKey struct{}

// WithOperator stores op and its role for the rbac guards.
func WithOperator(ctx context.Context, op Operator) context.Context {
	ctx = context.WithValue(ctx, operatorKey{}, op)
	return rbac.WithRole(ctx, op.Role)
}

func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}
