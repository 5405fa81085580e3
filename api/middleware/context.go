package middleware

import "context"

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxOrgID  contextKey = "org_id"
)

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func OrgIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxOrgID)
}

// WithUserID injects the authenticated user's identifier.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, ctxUserID, userID)
}

// WithRole injects the actor role.
func WithRole(ctx context.Context, role string) context.Context {
	return withString(ctx, ctxRole, role)
}

// WithOrgID injects the organization identifier. Admin tokens carry no
// org, so handlers must treat an empty value as "no org scope".
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return withString(ctx, ctxOrgID, orgID)
}
