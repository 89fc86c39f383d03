package user

type Role string

const (
	RoleAdmin          Role = "admin"           // full access
	RolePayrollManager Role = "payroll_manager" // runs calculations and tax imports
	RoleAccountant     Role = "accountant"      // calculations and reports, no tax entry
	RoleViewer         Role = "viewer"          // reports only
)

func (r Role) IsValid() bool {
	_, ok := RolePermissions[r]
	return ok
}

// Principal is the caller identity extracted from an access token.
type Principal struct {
	UserID string
	Role   Role
}

// Can checks if the principal's role grants permission
func (p Principal) Can(permission Permission) bool {
	return HasPermission(p.Role, permission)
}
