// Package policy centralizes permission decisions. Handlers call
// CanPerform instead of comparing role strings inline, so the full
// capability table lives in one place.
package policy

import (
	"github.com/aqarlink/crm/pkg/models"
)

// Action names a capability a user may hold.
type Action string

const (
	ActionLeadView      Action = "lead.view"
	ActionLeadCreate    Action = "lead.create"
	ActionLeadUpdate    Action = "lead.update"
	ActionLeadArchive   Action = "lead.archive"
	ActionLeadAssign    Action = "lead.assign"
	ActionLeadConvert   Action = "lead.convert"
	ActionLeadImport    Action = "lead.import"
	ActionLeadExport    Action = "lead.export"
	ActionClientView    Action = "client.view"
	ActionClientCreate  Action = "client.create"
	ActionClientUpdate  Action = "client.update"
	ActionClientArchive Action = "client.archive"
	ActionUserManage    Action = "user.manage"
	ActionDashboardView Action = "dashboard.view"
	ActionBackupRun     Action = "backup.run"
	ActionAuditView     Action = "audit.view"
)

// Resource carries the ownership facts of the object being acted on.
// Nil means the action has no object (create, import, dashboards).
type Resource struct {
	CreatedByID  uint
	AssignedToID *uint
}

// ownedBy reports whether the resource belongs to the user, either as
// creator or current assignee.
func (r *Resource) ownedBy(userID uint) bool {
	if r == nil {
		return false
	}
	if r.CreatedByID == userID {
		return true
	}
	return r.AssignedToID != nil && *r.AssignedToID == userID
}

// capabilities lists what each role may do regardless of ownership.
var capabilities = map[models.UserRole]map[Action]bool{
	models.RoleAdmin: {
		ActionLeadView: true, ActionLeadCreate: true, ActionLeadUpdate: true,
		ActionLeadArchive: true, ActionLeadAssign: true, ActionLeadConvert: true,
		ActionLeadImport: true, ActionLeadExport: true,
		ActionClientView: true, ActionClientCreate: true, ActionClientUpdate: true,
		ActionClientArchive: true,
		ActionUserManage:    true, ActionDashboardView: true,
		ActionBackupRun: true, ActionAuditView: true,
	},
	models.RoleSalesManager: {
		ActionLeadView: true, ActionLeadCreate: true, ActionLeadUpdate: true,
		ActionLeadArchive: true, ActionLeadAssign: true, ActionLeadConvert: true,
		ActionLeadImport: true, ActionLeadExport: true,
		ActionClientView: true, ActionClientCreate: true, ActionClientUpdate: true,
		ActionClientArchive: true,
		ActionDashboardView: true, ActionAuditView: true,
	},
	models.RoleSales: {
		ActionLeadView: true, ActionLeadCreate: true,
		ActionClientView: true, ActionClientCreate: true,
		ActionDashboardView: true,
	},
	models.RoleViewer: {
		ActionLeadView: true, ActionClientView: true, ActionDashboardView: true,
	},
}

// ownershipActions may additionally be performed by a sales user on
// leads and clients they own.
var ownershipActions = map[Action]bool{
	ActionLeadUpdate:   true,
	ActionLeadConvert:  true,
	ActionClientUpdate: true,
}

// CanPerform decides whether the actor may take the action on the
// resource. Inactive users can do nothing.
func CanPerform(action Action, actor *models.User, resource *Resource) bool {
	if actor == nil || !actor.IsActive {
		return false
	}

	if capabilities[actor.Role][action] {
		return true
	}

	if actor.Role == models.RoleSales && ownershipActions[action] {
		return resource.ownedBy(actor.ID)
	}

	return false
}
