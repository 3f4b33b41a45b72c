package domain

// Roles accepted on command routes. Tokens are issued elsewhere; only the
// role claim is inspected.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)
