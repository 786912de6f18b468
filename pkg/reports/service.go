package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightclass/reportcard/pkg/audit"
	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
	"github.com/brightclass/reportcard/pkg/rbac"
)

// minRevertReasonLen is the shortest accepted revert justification.
const minRevertReasonLen = 10

// ReportStore is the persistence surface the service needs. *Store
// implements it.
type ReportStore interface {
	GetReport(ctx context.Context, reportID string) (*Report, error)
	List(ctx context.Context, status Status, f Filters, studentScope []string) ([]*Report, error)
	Create(ctx context.Context, r *Report) error
	UpdateDraft(ctx context.Context, r *Report) (bool, error)
	CompleteCAS(ctx context.Context, reportID, actorID string, now time.Time) (bool, error)
	RevertCAS(ctx context.Context, reportID string, now time.Time) (bool, error)
}

// ActivityRecorder appends audit entries. A false return means the
// entry was dropped; the caller's state transition stands regardless.
type ActivityRecorder interface {
	Record(ctx context.Context, e audit.Entry) bool
}

// Service owns the report lifecycle: scope-gated reads, draft saves,
// and the guarded complete/revert transitions with their audit
// effects.
type Service struct {
	store    ReportStore
	table    rbac.PermissionTable
	scope    rbac.StudentScope
	recorder ActivityRecorder
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewService creates a report service. recorder and metrics may be
// nil. Logging goes through the context logger, annotated with the
// acting user when the caller put one there.
func NewService(store ReportStore, table rbac.PermissionTable, scope rbac.StudentScope, recorder ActivityRecorder, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		table:    table,
		scope:    scope,
		recorder: recorder,
		metrics:  metrics,
		now:      time.Now,
	}
}

// GetReportByID returns the caller's view of a report. Out-of-scope
// callers are refused with a role-appropriate reason rather than a
// not-found, since scope — not existence — is what they lack. A draft
// is returned to non-admins only as a redacted projection, and only
// when includeIncomplete is set; otherwise it resolves as not yet
// finalized.
func (s *Service) GetReportByID(ctx context.Context, reportID string, user *identity.Profile, includeIncomplete bool) (*View, error) {
	if !user.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}

	r, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	inScope, err := s.scope.CanAccessStudent(ctx, user, r.StudentID)
	if err != nil {
		return nil, err
	}
	if !inScope {
		return nil, errs.Forbidden(scopeDenialReason(user.Role))
	}

	if user.Role == identity.RoleAdmin || r.Status == StatusCompleted {
		return fullView(r), nil
	}

	if !includeIncomplete {
		return nil, errs.NotFound("Report is not yet finalized")
	}
	return redactedView(r), nil
}

// GetReportsByStatus lists reports in the given status, narrowed to
// the caller's student scope. Students and guardians only ever see
// completed reports; faculty see drafts as redacted projections.
func (s *Service) GetReportsByStatus(ctx context.Context, status Status, user *identity.Profile, f Filters) ([]*View, error) {
	if !user.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}
	if !status.Valid() {
		return nil, errs.Validation("Invalid report status")
	}

	switch user.Role {
	case identity.RoleStudent, identity.RoleGuardian:
		if status != StatusCompleted {
			return []*View{}, nil
		}
	}

	var studentScope []string
	if user.Role != identity.RoleAdmin {
		ids, err := s.scope.AccessibleStudents(ctx, user)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		studentScope = ids
	}

	result, err := s.store.List(ctx, status, f, studentScope)
	if err != nil {
		return nil, err
	}

	views := make([]*View, 0, len(result))
	for _, r := range result {
		if user.Role != identity.RoleAdmin && r.Status != StatusCompleted {
			views = append(views, redactedView(r))
			continue
		}
		views = append(views, fullView(r))
	}
	return views, nil
}

// SaveReport creates or updates a draft report. The stored status is
// forcibly draft on every save path; this operation can never complete
// or revert a report. Updates re-check the stored status at write
// time, so a save racing a completion loses cleanly.
func (s *Service) SaveReport(ctx context.Context, input ReportInput, actor *identity.Profile) (*View, error) {
	if !actor.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}
	if !s.table.HasCapability(actor, rbac.CapEditReports) {
		return nil, errs.Forbidden("You do not have permission to edit reports")
	}
	if input.StudentID == "" {
		return nil, errs.Validation("Student is required")
	}
	if input.Term == "" || input.AcademicYear == "" {
		return nil, errs.Validation("Term and academic year are required")
	}

	now := s.now()

	if input.ID == "" {
		r := s.buildDraft(input, now)
		r.CreatedAt = now
		if err := s.store.Create(ctx, r); err != nil {
			return nil, err
		}
		s.recordActivity(ctx, actor.ID, audit.ActionReportCreated, r.ID, map[string]interface{}{
			"student_id": r.StudentID,
		})
		return fullView(r), nil
	}

	current, err := s.store.GetReport(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleAdmin && actor.Role != identity.RoleFaculty {
		return nil, errs.Forbidden("Only administrators and faculty can edit reports")
	}
	if current.Status == StatusCompleted {
		return nil, errs.Forbidden("Report is completed and locked")
	}

	r := s.buildDraft(input, now)
	r.ID = input.ID
	r.CreatedAt = current.CreatedAt

	ok, err := s.store.UpdateDraft(ctx, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The status guard failed at write time: the report was
		// completed (or removed) after we read it.
		refreshed, rerr := s.store.GetReport(ctx, input.ID)
		if rerr != nil {
			return nil, rerr
		}
		if refreshed.Status == StatusCompleted {
			return nil, errs.Forbidden("Report is completed and locked")
		}
		return nil, errs.Conflict("Report was modified by another user")
	}

	s.recordActivity(ctx, actor.ID, audit.ActionReportUpdated, r.ID, map[string]interface{}{
		"student_id": r.StudentID,
	})
	return fullView(r), nil
}

// CompleteReport transitions a draft report to completed. Guards:
// manage_reports capability, draft status, and at least one grade
// entry. The status flip is compare-and-swapped on draft, so exactly
// one of two concurrent completions wins.
func (s *Service) CompleteReport(ctx context.Context, reportID string, actor *identity.Profile) (*View, error) {
	if !actor.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}
	if !s.table.HasCapability(actor, rbac.CapManageReports) {
		s.countTransition("complete", "forbidden")
		return nil, errs.Forbidden("Only administrators can complete reports")
	}

	r, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusDraft {
		s.countTransition("complete", "invalid_transition")
		return nil, errs.InvalidTransition("Report is already completed")
	}
	if len(r.Grades) == 0 {
		s.countTransition("complete", "precondition_failed")
		return nil, errs.Precondition("Cannot complete a report with no grade entries")
	}

	now := s.now()
	ok, err := s.store.CompleteCAS(ctx, reportID, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.countTransition("complete", "conflict")
		return nil, errs.Conflict("Report was completed by another user")
	}
	s.countTransition("complete", "success")

	r.Status = StatusCompleted
	r.CompletedBy = &actor.ID
	r.CompletedAt = &now
	r.UpdatedAt = now

	s.recordActivity(ctx, actor.ID, audit.ActionReportCompleted, reportID, map[string]interface{}{
		"student_id": r.StudentID,
	})

	return fullView(r), nil
}

// RevertReportToDraft transitions a completed report back to draft,
// clearing the completion fields. Requires a justification of at
// least ten characters; the reason lands in the audit trail.
func (s *Service) RevertReportToDraft(ctx context.Context, reportID string, actor *identity.Profile, reason string) (*View, error) {
	if !actor.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}
	if len(strings.TrimSpace(reason)) < minRevertReasonLen {
		return nil, errs.Validation("Reason is required (minimum 10 characters)")
	}
	if !s.table.HasCapability(actor, rbac.CapManageReports) {
		s.countTransition("revert", "forbidden")
		return nil, errs.Forbidden("Only administrators can revert reports")
	}

	r, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusCompleted {
		s.countTransition("revert", "invalid_transition")
		return nil, errs.InvalidTransition("Only completed reports can be reverted")
	}

	now := s.now()
	ok, err := s.store.RevertCAS(ctx, reportID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.countTransition("revert", "conflict")
		return nil, errs.Conflict("Report was modified by another user")
	}
	s.countTransition("revert", "success")

	r.Status = StatusDraft
	r.CompletedBy = nil
	r.CompletedAt = nil
	r.UpdatedAt = now

	s.recordActivity(ctx, actor.ID, audit.ActionReportReverted, reportID, map[string]interface{}{
		"student_id": r.StudentID,
		"reason":     strings.TrimSpace(reason),
	})

	return fullView(r), nil
}

// buildDraft assembles a draft report from a save payload, minting ids
// where needed. Caller-supplied status is never consulted.
func (s *Service) buildDraft(input ReportInput, now time.Time) *Report {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	grades := make([]GradeEntry, 0, len(input.Grades))
	for i, g := range input.Grades {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		g.ReportID = id
		if g.Position == 0 {
			g.Position = i + 1
		}
		grades = append(grades, g)
	}

	return &Report{
		ID:           id,
		StudentID:    input.StudentID,
		Status:       StatusDraft,
		Term:         input.Term,
		AcademicYear: input.AcademicYear,
		TotalScore:   input.TotalScore,
		OverallGrade: input.OverallGrade,
		UpdatedAt:    now,
		Grades:       grades,
	}
}

// recordActivity appends an audit entry. The append happens after the
// transition has committed and is tolerated to fail: a dropped entry
// is logged and counted, never unwound into the caller's write.
func (s *Service) recordActivity(ctx context.Context, actorID, action, reportID string, details map[string]interface{}) {
	if s.recorder == nil {
		return
	}

	ok := s.recorder.Record(ctx, audit.Entry{
		UserID:       actorID,
		Action:       action,
		ResourceType: audit.ResourceTypeReport,
		ResourceID:   reportID,
		Details:      details,
	})
	if !ok {
		observability.FromContext(ctx).WithFields(map[string]interface{}{
			"action":    action,
			"report_id": reportID,
			"actor_id":  actorID,
		}).Warn("audit entry dropped")
	}
}

func (s *Service) countTransition(transition, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

// scopeDenialReason phrases an out-of-scope denial for the caller's
// role. Mirrors the authorizer's wording so the two surfaces agree.
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
