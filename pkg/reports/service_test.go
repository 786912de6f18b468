package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/reportcard/pkg/audit"
	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
	"github.com/brightclass/reportcard/pkg/rbac"
)

type fakeStore struct {
	reports map[string]*Report

	// completeHook runs inside CompleteCAS before the swap, to
	// interleave a competing writer.
	completeHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]*Report)}
}

func (f *fakeStore) put(r *Report) {
	cp := *r
	f.reports[r.ID] = &cp
}

func (f *fakeStore) GetReport(ctx context.Context, reportID string) (*Report, error) {
	r, ok := f.reports[reportID]
	if !ok {
		return nil, errs.NotFound("Report not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) List(ctx context.Context, status Status, fl Filters, studentScope []string) ([]*Report, error) {
	if studentScope != nil && len(studentScope) == 0 {
		return []*Report{}, nil
	}
	inScope := func(studentID string) bool {
		if studentScope == nil {
			return true
		}
		for _, id := range studentScope {
			if id == studentID {
				return true
			}
		}
		return false
	}

	result := make([]*Report, 0)
	for _, r := range f.reports {
		if r.Status != status || !inScope(r.StudentID) {
			continue
		}
		if fl.StudentID != "" && r.StudentID != fl.StudentID {
			continue
		}
		if fl.Term != "" && r.Term != fl.Term {
			continue
		}
		if fl.AcademicYear != "" && r.AcademicYear != fl.AcademicYear {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeStore) Create(ctx context.Context, r *Report) error {
	f.put(r)
	return nil
}

func (f *fakeStore) UpdateDraft(ctx context.Context, r *Report) (bool, error) {
	current, ok := f.reports[r.ID]
	if !ok || current.Status != StatusDraft {
		return false, nil
	}
	cp := *r
	cp.Status = StatusDraft
	f.reports[r.ID] = &cp
	return true, nil
}

func (f *fakeStore) CompleteCAS(ctx context.Context, reportID, actorID string, now time.Time) (bool, error) {
	if f.completeHook != nil {
		f.completeHook()
	}
	r, ok := f.reports[reportID]
	if !ok || r.Status != StatusDraft {
		return false, nil
	}
	r.Status = StatusCompleted
	r.CompletedBy = &actorID
	r.CompletedAt = &now
	r.UpdatedAt = now
	return true, nil
}

func (f *fakeStore) RevertCAS(ctx context.Context, reportID string, now time.Time) (bool, error) {
	r, ok := f.reports[reportID]
	if !ok || r.Status != StatusCompleted {
		return false, nil
	}
	r.Status = StatusDraft
	r.CompletedBy = nil
	r.CompletedAt = nil
	r.UpdatedAt = now
	return true, nil
}

// racingStore completes the report between the service's read and its
// guarded update, as a competing writer would.
type racingStore struct {
	*fakeStore
}

func (r *racingStore) UpdateDraft(ctx context.Context, rep *Report) (bool, error) {
	stored := r.reports[rep.ID]
	if stored != nil && stored.Status == StatusDraft {
		by := "admin-2"
		at := time.Now()
		stored.Status = StatusCompleted
		stored.CompletedBy = &by
		stored.CompletedAt = &at
	}
	return r.fakeStore.UpdateDraft(ctx, rep)
}

// fakeScope grants access from a fixed user to student mapping. A nil
// map means admin-style unrestricted access.
type fakeScope struct {
	students map[string][]string
}

func (f *fakeScope) CanAccessStudent(ctx context.Context, user *identity.Profile, studentID string) (bool, error) {
	if user.Role == identity.RoleAdmin {
		return true, nil
	}
	for _, id := range f.students[user.ID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeScope) AccessibleStudents(ctx context.Context, user *identity.Profile) ([]string, error) {
	ids := f.students[user.ID]
	if ids == nil {
		return []string{}, nil
	}
	return ids, nil
}

type fakeRecorder struct {
	entries []audit.Entry
	fail    bool
}

func (f *fakeRecorder) Record(ctx context.Context, e audit.Entry) bool {
	if f.fail {
		return false
	}
	f.entries = append(f.entries, e)
	return true
}

func activeUser(id string, role identity.Role) *identity.Profile {
	return &identity.Profile{ID: id, Role: role, Status: identity.StatusActive}
}

func draftReport(id, studentID string, grades int) *Report {
	r := &Report{
		ID:           id,
		StudentID:    studentID,
		Status:       StatusDraft,
		Term:         "Term 1",
		AcademicYear: "2025/2026",
		TotalScore:   412.5,
		OverallGrade: "B+",
		CreatedAt:    time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
	}
	for i := 0; i < grades; i++ {
		r.Grades = append(r.Grades, GradeEntry{
			ID:         "grade-" + string(rune('a'+i)),
			ReportID:   id,
			CourseID:   "course-" + string(rune('a'+i)),
			ClassScore: 35,
			ExamScore:  48,
			TotalScore: 83,
			Grade:      "B+",
			Position:   i + 1,
		})
	}
	return r
}

func completedReport(id, studentID string) *Report {
	r := draftReport(id, studentID, 2)
	by := "admin-1"
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	r.Status = StatusCompleted
	r.CompletedBy = &by
	r.CompletedAt = &at
	return r
}

func newTestService(store ReportStore, scope rbac.StudentScope, recorder ActivityRecorder) *Service {
	svc := NewService(store, rbac.DefaultPermissionTable(), scope, recorder, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCompleteReport(t *testing.T) {
	admin := activeUser("admin-1", identity.RoleAdmin)

	t.Run("admin completes a draft", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		recorder := &fakeRecorder{}
		svc := newTestService(store, &fakeScope{}, recorder)

		view, err := svc.CompleteReport(context.Background(), "rep-1", admin)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, view.Status)
		require.NotNil(t, view.CompletedBy)
		assert.Equal(t, "admin-1", *view.CompletedBy)
		assert.NotNil(t, view.CompletedAt)

		stored, _ := store.GetReport(context.Background(), "rep-1")
		assert.Equal(t, StatusCompleted, stored.Status)

		require.Len(t, recorder.entries, 1)
		assert.Equal(t, audit.ActionReportCompleted, recorder.entries[0].Action)
		assert.Equal(t, "rep-1", recorder.entries[0].ResourceID)
		assert.Equal(t, "stu-1", recorder.entries[0].Details["student_id"])
	})

	t.Run("faculty cannot complete", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		_, err := svc.CompleteReport(context.Background(), "rep-1", activeUser("fac-1", identity.RoleFaculty))
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "Only administrators can complete reports", errs.Reason(err))

		stored, _ := store.GetReport(context.Background(), "rep-1")
		assert.Equal(t, StatusDraft, stored.Status)
	})

	t.Run("already completed", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		_, err := svc.CompleteReport(context.Background(), "rep-1", admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
		assert.Equal(t, "Report is already completed", errs.Reason(err))
	})

	t.Run("no grade entries", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 0))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		_, err := svc.CompleteReport(context.Background(), "rep-1", admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindPrecondition))
		assert.Equal(t, "Cannot complete a report with no grade entries", errs.Reason(err))
	})

	t.Run("missing report", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeScope{}, &fakeRecorder{})

		_, err := svc.CompleteReport(context.Background(), "rep-404", admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("concurrent completion loses the swap", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		// A competing admin flips the status between our read and our
		// swap.
		store.completeHook = func() {
			store.completeHook = nil
			r := store.reports["rep-1"]
			by := "admin-2"
			at := time.Now()
			r.Status = StatusCompleted
			r.CompletedBy = &by
			r.CompletedAt = &at
		}

		_, err := svc.CompleteReport(context.Background(), "rep-1", admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindConflict))
		assert.Equal(t, "Report was completed by another user", errs.Reason(err))

		stored, _ := store.GetReport(context.Background(), "rep-1")
		require.NotNil(t, stored.CompletedBy)
		assert.Equal(t, "admin-2", *stored.CompletedBy)
	})

	t.Run("transition stands when the audit write drops", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{fail: true})

		view, err := svc.CompleteReport(context.Background(), "rep-1", admin)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, view.Status)

		stored, _ := store.GetReport(context.Background(), "rep-1")
		assert.Equal(t, StatusCompleted, stored.Status)
	})

	t.Run("dropped audit write logs through the context logger", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{fail: true})

		var buf bytes.Buffer
		ctx := observability.WithLogger(context.Background(), observability.NewLogger(observability.InfoLevel, &buf))
		ctx = observability.WithActorID(ctx, "admin-1")

		_, err := svc.CompleteReport(ctx, "rep-1", admin)
		require.NoError(t, err)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "audit entry dropped", entry["msg"])
		assert.Equal(t, "admin-1", entry["actor_id"])
		assert.Equal(t, "rep-1", entry["report_id"])
	})

	t.Run("inactive admin", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		inactive := &identity.Profile{ID: "admin-1", Role: identity.RoleAdmin, Status: identity.StatusInactive}
		_, err := svc.CompleteReport(context.Background(), "rep-1", inactive)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindUnauthorized))
	})
}

func TestRevertReportToDraft(t *testing.T) {
	admin := activeUser("admin-1", identity.RoleAdmin)

	t.Run("admin reverts with a reason", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		recorder := &fakeRecorder{}
		svc := newTestService(store, &fakeScope{}, recorder)

		view, err := svc.RevertReportToDraft(context.Background(), "rep-1", admin, "Exam scores were entered for the wrong course")
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, view.Status)
		assert.Nil(t, view.CompletedBy)
		assert.Nil(t, view.CompletedAt)

		require.Len(t, recorder.entries, 1)
		assert.Equal(t, audit.ActionReportReverted, recorder.entries[0].Action)
		assert.Equal(t, "Exam scores were entered for the wrong course", recorder.entries[0].Details["reason"])
	})

	t.Run("reason too short", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		for _, reason := range []string{"", "typo", "   padded   "} {
			_, err := svc.RevertReportToDraft(context.Background(), "rep-1", admin, reason)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindValidation))
			assert.Equal(t, "Reason is required (minimum 10 characters)", errs.Reason(err))
		}
	})

	t.Run("faculty cannot revert", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		_, err := svc.RevertReportToDraft(context.Background(), "rep-1", activeUser("fac-1", identity.RoleFaculty), "Need to fix grade entry order")
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "Only administrators can revert reports", errs.Reason(err))
	})

	t.Run("draft cannot be reverted", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		_, err := svc.RevertReportToDraft(context.Background(), "rep-1", admin, "Scores need a second review")
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidTransition))
		assert.Equal(t, "Only completed reports can be reverted", errs.Reason(err))
	})
}

func TestSaveReport(t *testing.T) {
	admin := activeUser("admin-1", identity.RoleAdmin)
	faculty := activeUser("fac-1", identity.RoleFaculty)

	input := func() ReportInput {
		return ReportInput{
			StudentID:    "stu-1",
			Term:         "Term 2",
			AcademicYear: "2025/2026",
			TotalScore:   390,
			OverallGrade: "B",
			Grades: []GradeEntry{
				{CourseID: "course-a", ClassScore: 30, ExamScore: 50, TotalScore: 80, Grade: "B+"},
			},
		}
	}

	t.Run("create lands in draft", func(t *testing.T) {
		store := newFakeStore()
		recorder := &fakeRecorder{}
		svc := newTestService(store, &fakeScope{}, recorder)

		view, err := svc.SaveReport(context.Background(), input(), faculty)
		require.NoError(t, err)
		assert.NotEmpty(t, view.ID)
		assert.Equal(t, StatusDraft, view.Status)
		require.Len(t, view.Grades, 1)
		assert.Equal(t, 1, view.Grades[0].Position)

		require.Len(t, recorder.entries, 1)
		assert.Equal(t, audit.ActionReportCreated, recorder.entries[0].Action)
	})

	t.Run("student cannot save", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeScope{}, &fakeRecorder{})

		_, err := svc.SaveReport(context.Background(), input(), activeUser("stu-1", identity.RoleStudent))
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
	})

	t.Run("missing student id", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeScope{}, &fakeRecorder{})

		in := input()
		in.StudentID = ""
		_, err := svc.SaveReport(context.Background(), in, faculty)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("update keeps draft status", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		in := input()
		in.ID = "rep-1"
		view, err := svc.SaveReport(context.Background(), in, admin)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, view.Status)
		assert.Equal(t, "Term 2", view.Term)
	})

	t.Run("completed report is locked", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		in := input()
		in.ID = "rep-1"
		_, err := svc.SaveReport(context.Background(), in, admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "Report is completed and locked", errs.Reason(err))

		stored, _ := store.GetReport(context.Background(), "rep-1")
		assert.Equal(t, StatusCompleted, stored.Status)
		assert.Equal(t, "Term 1", stored.Term)
	})

	t.Run("update of a missing report", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeScope{}, &fakeRecorder{})

		in := input()
		in.ID = "rep-404"
		_, err := svc.SaveReport(context.Background(), in, admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("save racing a completion loses", func(t *testing.T) {
		store := &racingStore{fakeStore: newFakeStore()}
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, &fakeScope{}, &fakeRecorder{})

		in := input()
		in.ID = "rep-1"
		_, err := svc.SaveReport(context.Background(), in, admin)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "Report is completed and locked", errs.Reason(err))

		stored, _ := store.GetReport(context.Background(), "rep-1")
		assert.Equal(t, StatusCompleted, stored.Status)
	})
}

func TestGetReportByID(t *testing.T) {
	admin := activeUser("admin-1", identity.RoleAdmin)
	student := activeUser("stu-1", identity.RoleStudent)
	guardian := activeUser("gua-1", identity.RoleGuardian)
	faculty := activeUser("fac-1", identity.RoleFaculty)

	scope := &fakeScope{students: map[string][]string{
		"stu-1": {"stu-1"},
		"gua-1": {"stu-1", "stu-2"},
		"fac-1": {"stu-1"},
	}}

	t.Run("student reads own completed report", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		svc := newTestService(store, scope, &fakeRecorder{})

		view, err := svc.GetReportByID(context.Background(), "rep-1", student, true)
		require.NoError(t, err)
		assert.False(t, view.Incomplete)
		require.NotNil(t, view.TotalScore)
		assert.Equal(t, 412.5, *view.TotalScore)
		assert.Len(t, view.Grades, 2)
	})

	t.Run("student denied another student's report", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-2", "stu-2"))
		svc := newTestService(store, scope, &fakeRecorder{})

		_, err := svc.GetReportByID(context.Background(), "rep-2", student, true)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "You can only view your own reports", errs.Reason(err))
	})

	t.Run("guardian reads linked student's report", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-2", "stu-2"))
		svc := newTestService(store, scope, &fakeRecorder{})

		view, err := svc.GetReportByID(context.Background(), "rep-2", guardian, true)
		require.NoError(t, err)
		assert.Equal(t, "stu-2", view.StudentID)
	})

	t.Run("guardian denied unlinked student", func(t *testing.T) {
		store := newFakeStore()
		store.put(completedReport("rep-3", "stu-3"))
		svc := newTestService(store, scope, &fakeRecorder{})

		_, err := svc.GetReportByID(context.Background(), "rep-3", guardian, true)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
		assert.Equal(t, "You can only view reports for your linked students", errs.Reason(err))
	})

	t.Run("draft is redacted for faculty", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, scope, &fakeRecorder{})

		view, err := svc.GetReportByID(context.Background(), "rep-1", faculty, true)
		require.NoError(t, err)
		assert.True(t, view.Incomplete)
		assert.Nil(t, view.TotalScore)
		assert.Empty(t, view.Grades)
		assert.Empty(t, view.OverallGrade)
	})

	t.Run("draft hidden without includeIncomplete", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, scope, &fakeRecorder{})

		_, err := svc.GetReportByID(context.Background(), "rep-1", student, false)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
		assert.Equal(t, "Report is not yet finalized", errs.Reason(err))
	})

	t.Run("admin sees the full draft", func(t *testing.T) {
		store := newFakeStore()
		store.put(draftReport("rep-1", "stu-1", 2))
		svc := newTestService(store, scope, &fakeRecorder{})

		view, err := svc.GetReportByID(context.Background(), "rep-1", admin, false)
		require.NoError(t, err)
		assert.False(t, view.Incomplete)
		assert.Len(t, view.Grades, 2)
	})

	t.Run("missing report", func(t *testing.T) {
		svc := newTestService(newFakeStore(), scope, &fakeRecorder{})

		_, err := svc.GetReportByID(context.Background(), "rep-404", admin, true)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}

func TestGetReportsByStatus(t *testing.T) {
	admin := activeUser("admin-1", identity.RoleAdmin)
	student := activeUser("stu-1", identity.RoleStudent)
	faculty := activeUser("fac-1", identity.RoleFaculty)

	scope := &fakeScope{students: map[string][]string{
		"stu-1": {"stu-1"},
		"fac-1": {"stu-1", "stu-2"},
	}}

	seed := func() *fakeStore {
		store := newFakeStore()
		store.put(completedReport("rep-1", "stu-1"))
		store.put(draftReport("rep-2", "stu-1", 1))
		store.put(completedReport("rep-3", "stu-2"))
		store.put(completedReport("rep-4", "stu-3"))
		return store
	}

	t.Run("admin sees everything in status", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusCompleted, admin, Filters{})
		require.NoError(t, err)
		assert.Len(t, views, 3)
	})

	t.Run("student sees only own completed reports", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusCompleted, student, Filters{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "rep-1", views[0].ID)
	})

	t.Run("student asking for drafts gets an empty list", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusDraft, student, Filters{})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("faculty drafts are redacted", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusDraft, faculty, Filters{})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.True(t, views[0].Incomplete)
		assert.Nil(t, views[0].TotalScore)
	})

	t.Run("scope narrows faculty lists", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusCompleted, faculty, Filters{})
		require.NoError(t, err)
		assert.Len(t, views, 2)
		for _, v := range views {
			assert.NotEqual(t, "stu-3", v.StudentID)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		_, err := svc.GetReportsByStatus(context.Background(), Status("archived"), admin, Filters{})
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindValidation))
	})

	t.Run("term filter applies", func(t *testing.T) {
		svc := newTestService(seed(), scope, &fakeRecorder{})

		views, err := svc.GetReportsByStatus(context.Background(), StatusCompleted, admin, Filters{Term: "Term 1"})
		require.NoError(t, err)
		assert.Len(t, views, 3)

		views, err = svc.GetReportsByStatus(context.Background(), StatusCompleted, admin, Filters{Term: "Term 9"})
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}
