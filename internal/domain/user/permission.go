package user

type Permission string

const (
	// Social insurance and pay
	PermissionPayrollCalculate Permission = "payroll.calculate"

	// Personal income tax entry and import
	PermissionTaxManage Permission = "payroll.tax_manage"

	// Reports
	PermissionReportsView Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionPayrollCalculate,
		PermissionTaxManage,
		PermissionReportsView,
	},
	RolePayrollManager: {
		PermissionPayrollCalculate,
		PermissionTaxManage,
		PermissionReportsView,
	},
	RoleAccountant: {
		PermissionPayrollCalculate,
		PermissionReportsView,
	},
	RoleViewer: {
		PermissionReportsView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
