package rbac

import (
	"context"

	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
)

// Report status values as stored. Kept here so the authorizer does not
// depend on the reports package.
const (
	statusDraft     = "draft"
	statusCompleted = "completed"
)

// ReportMeta is the slice of a report the authorizer needs to decide.
type ReportMeta struct {
	ID        string
	StudentID string
	Status    string
}

// ReportMetaFinder resolves the authorization-relevant fields of a
// report. Implemented by the reports store.
type ReportMetaFinder interface {
	GetReportMeta(ctx context.Context, reportID string) (*ReportMeta, error)
}

// Decision is the outcome of a permission check. It is always a
// decided value; a check never fails with an expected outcome.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorizer composes the permission table and the relationship scope
// into per-action decisions on reports.
type Authorizer struct {
	table   PermissionTable
	scope   StudentScope
	reports ReportMetaFinder
	metrics *observability.Metrics
}

// NewAuthorizer creates an authorizer. metrics may be nil.
func NewAuthorizer(table PermissionTable, scope StudentScope, reports ReportMetaFinder, metrics *observability.Metrics) *Authorizer {
	return &Authorizer{
		table:   table,
		scope:   scope,
		reports: reports,
		metrics: metrics,
	}
}

// CheckReportPermission decides whether user may perform action on the
// report. Every expected outcome — unknown user, missing report, out
// of scope, wrong role, wrong lifecycle state — is returned as a
// denied Decision with a caller-renderable reason. The returned error
// is non-nil only for store faults.
func (a *Authorizer) CheckReportPermission(ctx context.Context, user *identity.Profile, reportID string, action ReportAction) (Decision, error) {
	decision, err := a.check(ctx, user, reportID, action)
	if err == nil && a.metrics != nil {
		role := "none"
		if user != nil {
			role = string(user.Role)
		}
		outcome := "denied"
		if decision.Allowed {
			outcome = "allowed"
		}
		a.metrics.AuthzDecisionsTotal.WithLabelValues(action.String(), role, outcome).Inc()
	}
	return decision, err
}

func (a *Authorizer) check(ctx context.Context, user *identity.Profile, reportID string, action ReportAction) (Decision, error) {
	if !user.IsActive() {
		return deny("User account is inactive"), nil
	}

	meta, err := a.reports.GetReportMeta(ctx, reportID)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return deny("Report not found"), nil
		}
		return Decision{}, err
	}

	// Relationship scope is a prerequisite for every action.
	inScope, err := a.scope.CanAccessStudent(ctx, user, meta.StudentID)
	if err != nil {
		return Decision{}, err
	}
	if !inScope {
		return deny(scopeDenialReason(user.Role)), nil
	}

	switch action {
	case ActionView:
		return allow(), nil

	case ActionEdit:
		if user.Role != identity.RoleAdmin && user.Role != identity.RoleFaculty {
			return deny("Only administrators and faculty can edit reports"), nil
		}
		if meta.Status == statusCompleted {
			return deny("Report is completed and locked"), nil
		}
		return allow(), nil

	case ActionComplete:
		if user.Role != identity.RoleAdmin {
			return deny("Only administrators can complete reports"), nil
		}
		if meta.Status != statusDraft {
			return deny("Report is already completed"), nil
		}
		return allow(), nil

	case ActionRevert:
		if user.Role != identity.RoleAdmin {
			return deny("Only administrators can revert reports"), nil
		}
		if meta.Status != statusCompleted {
			return deny("Only completed reports can be reverted"), nil
		}
		return allow(), nil

	case ActionUnknown:
		return deny("Unknown action"), nil

	default:
		return deny("Unknown action"), nil
	}
}

// scopeDenialReason phrases an out-of-scope denial for the caller's
// role.
func scopeDenialReason(role identity.Role) string {
	switch role {
	case identity.RoleStudent:
		return "You can only view your own reports"
	case identity.RoleGuardian:
		return "You can only view reports for your linked students"
	case identity.RoleFaculty:
		return "Student is not enrolled in any of your assigned courses"
	default:
		return "You do not have access to this student's reports"
	}
}
