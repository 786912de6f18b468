package rbac

import (
	"github.com/brightclass/reportcard/pkg/identity"
)

// Capability represents a named permission granted to a role
type Capability string

const (
	CapViewReports          Capability = "view_reports"
	CapEditReports          Capability = "edit_reports"
	CapManageReports        Capability = "manage_reports"
	CapCompleteReports      Capability = "complete_reports"
	CapRevertReports        Capability = "revert_reports"
	CapViewAllStudents      Capability = "view_all_students"
	CapManageUsers          Capability = "manage_users"
	CapViewAnalytics        Capability = "view_analytics"
	CapViewAssignedStudents Capability = "view_assigned_students"
	CapCreateReports        Capability = "create_reports"
	CapViewOwnReports       Capability = "view_own_reports"
	CapViewChildReports     Capability = "view_child_reports"
)

// PermissionTable maps roles to their capability set. It is built once
// at process start and is immutable afterwards; the grant map is never
// exposed to callers.
type PermissionTable struct {
	grants map[identity.Role]map[Capability]struct{}
}

// DefaultPermissionTable returns the fixed role→capability mapping for
// the report system.
func DefaultPermissionTable() PermissionTable {
	byRole := map[identity.Role][]Capability{
		identity.RoleAdmin: {
			CapViewReports,
			CapEditReports,
			CapManageReports,
			CapCompleteReports,
			CapRevertReports,
			CapViewAllStudents,
			CapManageUsers,
			CapViewAnalytics,
		},
		identity.RoleFaculty: {
			CapViewReports,
			CapEditReports,
			CapViewAssignedStudents,
			CapCreateReports,
		},
		identity.RoleStudent: {
			CapViewOwnReports,
		},
		identity.RoleGuardian: {
			CapViewChildReports,
		},
	}

	grants := make(map[identity.Role]map[Capability]struct{}, len(byRole))
	for role, caps := range byRole {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		grants[role] = set
	}

	return PermissionTable{grants: grants}
}

// HasCapability reports whether the profile's role grants the
// capability. A nil profile or an unknown role never has capabilities.
func (t PermissionTable) HasCapability(profile *identity.Profile, cap Capability) bool {
	if profile == nil {
		return false
	}
	set, ok := t.grants[profile.Role]
	if !ok {
		return false
	}
	_, ok = set[cap]
	return ok
}

// Capabilities returns a copy of the capability set for a role.
// Mutation of the returned slice does not affect the table.
func (t PermissionTable) Capabilities(role identity.Role) []Capability {
	set, ok := t.grants[role]
	if !ok {
		return nil
	}
	caps := make([]Capability, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	return caps
}

// ReportAction is the closed set of actions the authorizer decides on.
// Keeping it a dedicated type makes the per-action switch exhaustive;
// a new action that is not handled shows up at review rather than as a
// silent runtime fallthrough.
type ReportAction int

const (
	// ActionUnknown is the zero value for unrecognized action strings.
	ActionUnknown ReportAction = iota
	ActionView
	ActionEdit
	ActionComplete
	ActionRevert
)

// String returns the wire name of the action.
func (a ReportAction) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionEdit:
		return "edit"
	case ActionComplete:
		return "complete"
	case ActionRevert:
		return "revert"
	default:
		return "unknown"
	}
}

// ParseReportAction maps an action name supplied by a caller onto the
// closed action set. Unrecognized names map to ActionUnknown.
func ParseReportAction(s string) ReportAction {
	switch s {
	case "view":
		return ActionView
	case "edit":
		return ActionEdit
	case "complete":
		return ActionComplete
	case "revert":
		return ActionRevert
	default:
		return ActionUnknown
	}
}
