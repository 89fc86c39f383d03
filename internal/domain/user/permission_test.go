package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role       Role
		permission Permission
		want       bool
	}{
		{RoleAdmin, PermissionTaxManage, true},
		{RolePayrollManager, PermissionPayrollCalculate, true},
		{RoleAccountant, PermissionTaxManage, false},
		{RoleAccountant, PermissionReportsView, true},
		{RoleViewer, PermissionPayrollCalculate, false},
		{Role("intruder"), PermissionReportsView, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HasPermission(c.role, c.permission), "%s/%s", c.role, c.permission)
	}
}

func TestPrincipalCan(t *testing.T) {
	p := Principal{UserID: "u-1", Role: RoleViewer}
	assert.True(t, p.Can(PermissionReportsView))
	assert.False(t, p.Can(PermissionTaxManage))
	assert.False(t, Role("nope").IsValid())
	assert.True(t, RoleAdmin.IsValid())
}
