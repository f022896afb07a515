package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqarlink/crm/pkg/models"
)

func user(id uint, role models.UserRole) *models.User {
	return &models.User{ID: id, Role: role, IsActive: true}
}

func TestCanPerformByRole(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		actor  *models.User
		want   bool
	}{
		{"admin manages users", ActionUserManage, user(1, models.RoleAdmin), true},
		{"admin runs backups", ActionBackupRun, user(1, models.RoleAdmin), true},
		{"manager cannot manage users", ActionUserManage, user(2, models.RoleSalesManager), false},
		{"manager cannot run backups", ActionBackupRun, user(2, models.RoleSalesManager), false},
		{"manager assigns leads", ActionLeadAssign, user(2, models.RoleSalesManager), true},
		{"manager imports leads", ActionLeadImport, user(2, models.RoleSalesManager), true},
		{"sales creates leads", ActionLeadCreate, user(3, models.RoleSales), true},
		{"sales cannot assign", ActionLeadAssign, user(3, models.RoleSales), false},
		{"sales cannot import", ActionLeadImport, user(3, models.RoleSales), false},
		{"viewer reads leads", ActionLeadView, user(4, models.RoleViewer), true},
		{"viewer cannot create", ActionLeadCreate, user(4, models.RoleViewer), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.action, tt.actor, nil))
		})
	}
}

func TestSalesOwnershipActions(t *testing.T) {
	sales := user(3, models.RoleSales)
	assignee := uint(3)

	owned := &Resource{CreatedByID: 9, AssignedToID: &assignee}
	created := &Resource{CreatedByID: 3}
	foreign := &Resource{CreatedByID: 9}

	assert.True(t, CanPerform(ActionLeadUpdate, sales, owned))
	assert.True(t, CanPerform(ActionLeadConvert, sales, created))
	assert.False(t, CanPerform(ActionLeadUpdate, sales, foreign))
	assert.False(t, CanPerform(ActionLeadUpdate, sales, nil))

	// Ownership does not extend to archive or assign.
	assert.False(t, CanPerform(ActionLeadArchive, sales, owned))
	assert.False(t, CanPerform(ActionLeadAssign, sales, owned))

	// Managers act on any resource.
	assert.True(t, CanPerform(ActionLeadUpdate, user(2, models.RoleSalesManager), foreign))
}

func TestInactiveAndMissingActors(t *testing.T) {
	inactive := &models.User{ID: 1, Role: models.RoleAdmin, IsActive: false}
	assert.False(t, CanPerform(ActionLeadView, inactive, nil))
	assert.False(t, CanPerform(ActionLeadView, nil, nil))
}
