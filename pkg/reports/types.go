package reports

import "time"

// Status represents a report's lifecycle state. The state machine has
// exactly two states; completed is reachable from draft and vice
// versa, through the guarded Complete and Revert operations only.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusCompleted
}

// Report is an academic report record for one student and term. It
// owns an ordered collection of grade entries.
//
// Invariant: CompletedBy and CompletedAt are non-nil iff Status is
// completed.
type Report struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	Status       Status       `json:"status"`
	Term         string       `json:"term"`
	AcademicYear string       `json:"academic_year"`
	TotalScore   float64      `json:"total_score"`
	OverallGrade string       `json:"overall_grade"`
	CompletedBy  *string      `json:"completed_by"`
	CompletedAt  *time.Time   `json:"completed_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Grades       []GradeEntry `json:"grades"`
}

// GradeEntry is one course line on a report. Entries live and die with
// their owning report.
type GradeEntry struct {
	ID         string  `json:"-"`
	ReportID   string  `json:"-"`
	CourseID   string  `json:"course_id"`
	ClassScore float64 `json:"class_score"`
	ExamScore  float64 `json:"exam_score"`
	TotalScore float64 `json:"total_score"`
	Grade      string  `json:"grade"`
	Position   int     `json:"position"`
	Remark     string  `json:"remark"`
}

// ReportInput is the save payload accepted from callers. Any status
// supplied by the caller is ignored; saves always land in draft.
type ReportInput struct {
	ID           string       `json:"id,omitempty"`
	StudentID    string       `json:"student_id"`
	Term         string       `json:"term"`
	AcademicYear string       `json:"academic_year"`
	TotalScore   float64      `json:"total_score"`
	OverallGrade string       `json:"overall_grade"`
	Grades       []GradeEntry `json:"grades"`
}

// Filters narrows report list queries.
type Filters struct {
	Term         string
	AcademicYear string
	StudentID    string
}

// View is the caller-facing projection of a report. For non-admin
// viewers of a draft, the projection is redacted: the draft's
// existence is observable but score and grade detail are withheld.
type View struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	Status       Status       `json:"status"`
	Term         string       `json:"term"`
	AcademicYear string       `json:"academic_year"`
	TotalScore   *float64     `json:"total_score"`
	OverallGrade string       `json:"overall_grade,omitempty"`
	CompletedBy  *string      `json:"completed_by"`
	CompletedAt  *time.Time   `json:"completed_at"`
	Incomplete   bool         `json:"incomplete,omitempty"`
	Grades       []GradeEntry `json:"grades,omitempty"`
}

// fullView projects a report with all detail.
func fullView(r *Report) *View {
	score := r.TotalScore
	return &View{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Status:       r.Status,
		Term:         r.Term,
		AcademicYear: r.AcademicYear,
		TotalScore:   &score,
		OverallGrade: r.OverallGrade,
		CompletedBy:  r.CompletedBy,
		CompletedAt:  r.CompletedAt,
		Grades:       r.Grades,
	}
}

// redactedView projects a draft for a non-admin viewer: an incomplete
// marker without grade detail.
func redactedView(r *Report) *View {
	return &View{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Status:       r.Status,
		Term:         r.Term,
		AcademicYear: r.AcademicYear,
		Incomplete:   true,
	}
}
