package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/observability"
	"github.com/brightclass/reportcard/pkg/rbac"
)

// Store persists reports and their grade entries in PostgreSQL. The
// guarded transitions are written with compare-and-swap updates
// conditioned on the status observed at read time, so two concurrent
// writers can never both pass the same status guard.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewStore creates a report store backed by db. metrics may be nil,
// in which case store faults are not counted.
func NewStore(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

const reportColumns = `id, student_id, status, term, academic_year, total_score, overall_grade, completed_by, completed_at, created_at, updated_at`

// GetReport retrieves a report with its grade entries ordered by
// position.
func (s *Store) GetReport(ctx context.Context, reportID string) (*Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1`, reportColumns)

	r, err := scanReport(s.db.QueryRowContext(ctx, query, reportID))
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("Report not found")
	}
	if err != nil {
		return nil, s.storeErr("get_report", "report lookup failed", err)
	}

	grades, err := s.loadGrades(ctx, reportID)
	if err != nil {
		return nil, err
	}
	r.Grades = grades

	return r, nil
}

// GetReportMeta resolves the authorization-relevant fields of a
// report. Implements rbac.ReportMetaFinder.
func (s *Store) GetReportMeta(ctx context.Context, reportID string) (*rbac.ReportMeta, error) {
	query := `SELECT id, student_id, status FROM reports WHERE id = $1`

	var meta rbac.ReportMeta
	err := s.db.QueryRowContext(ctx, query, reportID).Scan(&meta.ID, &meta.StudentID, &meta.Status)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("Report not found")
	}
	if err != nil {
		return nil, s.storeErr("get_report_meta", "report lookup failed", err)
	}

	return &meta, nil
}

// List returns reports matching the status and filters. A nil
// studentScope is unrestricted (admin callers); an empty non-nil scope
// short-circuits to no rows without touching the store. Grade entries
// are loaded for every returned report.
func (s *Store) List(ctx context.Context, status Status, f Filters, studentScope []string) ([]*Report, error) {
	if studentScope != nil && len(studentScope) == 0 {
		return []*Report{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM reports WHERE status = $1`, reportColumns)
	args := []interface{}{string(status)}
	argCount := 2

	if studentScope != nil {
		query += fmt.Sprintf(" AND student_id = ANY($%d)", argCount)
		args = append(args, pq.Array(studentScope))
		argCount++
	}
	if f.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", argCount)
		args = append(args, f.StudentID)
		argCount++
	}
	if f.Term != "" {
		query += fmt.Sprintf(" AND term = $%d", argCount)
		args = append(args, f.Term)
		argCount++
	}
	if f.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", argCount)
		args = append(args, f.AcademicYear)
		argCount++
	}

	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("list_reports", "report list query failed", err)
	}
	defer rows.Close()

	result := make([]*Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, s.storeErr("list_reports", "report scan failed", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("list_reports", "report iteration failed", err)
	}

	for _, r := range result {
		grades, err := s.loadGrades(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.Grades = grades
	}

	return result, nil
}

// Create inserts a new draft report and its grade entries in one
// transaction.
func (s *Store) Create(ctx context.Context, r *Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.storeErr("create_report", "failed to start transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reports (id, student_id, status, term, academic_year, total_score, overall_grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		r.ID, r.StudentID, string(r.Status), r.Term, r.AcademicYear,
		r.TotalScore, r.OverallGrade, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return s.storeErr("create_report", "report insert failed", err)
	}

	if err := s.insertGrades(ctx, tx, r.ID, r.Grades); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return s.storeErr("create_report", "report insert commit failed", err)
	}
	return nil
}

// UpdateDraft rewrites a report's fields and grade entries, guarded on
// the stored status still being draft at write time. Returns false
// without modifying anything when the guard fails (the report was
// completed or deleted since it was read).
func (s *Store) UpdateDraft(ctx context.Context, r *Report) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, s.storeErr("update_report", "failed to start transaction", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE reports
		SET student_id = $2, term = $3, academic_year = $4, total_score = $5, overall_grade = $6, status = 'draft', updated_at = $7
		WHERE id = $1 AND status = 'draft'
	`
	res, err := tx.ExecContext(ctx, query,
		r.ID, r.StudentID, r.Term, r.AcademicYear, r.TotalScore, r.OverallGrade, r.UpdatedAt,
	)
	if err != nil {
		return false, s.storeErr("update_report", "report update failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.storeErr("update_report", "report update failed", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_entries WHERE report_id = $1`, r.ID); err != nil {
		return false, s.storeErr("update_report", "grade replace failed", err)
	}
	if err := s.insertGrades(ctx, tx, r.ID, r.Grades); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, s.storeErr("update_report", "report update commit failed", err)
	}
	return true, nil
}

// CompleteCAS flips a draft report to completed, conditioned on the
// status still being draft. Returns false when another writer got
// there first.
func (s *Store) CompleteCAS(ctx context.Context, reportID, actorID string, now time.Time) (bool, error) {
	query := `
		UPDATE reports
		SET status = 'completed', completed_by = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'draft'
	`
	res, err := s.db.ExecContext(ctx, query, reportID, actorID, now)
	if err != nil {
		return false, s.storeErr("complete_report", "report complete failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.storeErr("complete_report", "report complete failed", err)
	}
	return affected > 0, nil
}

// RevertCAS flips a completed report back to draft and clears the
// completion fields, conditioned on the status still being completed.
func (s *Store) RevertCAS(ctx context.Context, reportID string, now time.Time) (bool, error) {
	query := `
		UPDATE reports
		SET status = 'draft', completed_by = NULL, completed_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'completed'
	`
	res, err := s.db.ExecContext(ctx, query, reportID, now)
	if err != nil {
		return false, s.storeErr("revert_report", "report revert failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.storeErr("revert_report", "report revert failed", err)
	}
	return affected > 0, nil
}

func (s *Store) loadGrades(ctx context.Context, reportID string) ([]GradeEntry, error) {
	query := `
		SELECT id, report_id, course_id, class_score, exam_score, total_score, grade, position, remark
		FROM grade_entries
		WHERE report_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, s.storeErr("load_grades", "grade entry query failed", err)
	}
	defer rows.Close()

	grades := make([]GradeEntry, 0)
	for rows.Next() {
		var g GradeEntry
		err := rows.Scan(
			&g.ID, &g.ReportID, &g.CourseID,
			&g.ClassScore, &g.ExamScore, &g.TotalScore,
			&g.Grade, &g.Position, &g.Remark,
		)
		if err != nil {
			return nil, s.storeErr("load_grades", "grade entry scan failed", err)
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("load_grades", "grade entry iteration failed", err)
	}

	return grades, nil
}

func (s *Store) insertGrades(ctx context.Context, tx *sql.Tx, reportID string, grades []GradeEntry) error {
	query := `
		INSERT INTO grade_entries (id, report_id, course_id, class_score, exam_score, total_score, grade, position, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, g := range grades {
		_, err := tx.ExecContext(ctx, query,
			g.ID, reportID, g.CourseID,
			g.ClassScore, g.ExamScore, g.TotalScore,
			g.Grade, g.Position, g.Remark,
		)
		if err != nil {
			return s.storeErr("insert_grades", "grade entry insert failed", err)
		}
	}
	return nil
}

// storeErr counts the fault against its operation and returns it as a
// transient store error.
func (s *Store) storeErr(operation, message string, err error) error {
	if s.metrics != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
	return errs.TransientStore(message, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(scanner rowScanner) (*Report, error) {
	var r Report
	var completedBy sql.NullString
	var completedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.StudentID, &r.Status, &r.Term, &r.AcademicYear,
		&r.TotalScore, &r.OverallGrade, &completedBy, &completedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedBy.Valid {
		v := completedBy.String
		r.CompletedBy = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		r.CompletedAt = &v
	}

	return &r, nil
}
