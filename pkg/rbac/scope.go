package rbac

import (
	"context"
	"database/sql"

	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/identity"
)

// StudentScope resolves which students a user may touch. Both
// implementations (the direct SQL resolver and the cached wrapper)
// satisfy it.
type StudentScope interface {
	// CanAccessStudent reports whether the user's relationship graph
	// reaches studentID.
	CanAccessStudent(ctx context.Context, user *identity.Profile, studentID string) (bool, error)

	// AccessibleStudents returns every student id in the user's scope.
	// Used to pre-narrow list queries so callers never see out-of-scope
	// reports.
	AccessibleStudents(ctx context.Context, user *identity.Profile) ([]string, error)
}

// ScopeResolver computes student scope from the stored relationship
// edges on every call. Reads only; safe for concurrent use.
type ScopeResolver struct {
	db *sql.DB
}

// NewScopeResolver creates a resolver backed by db.
func NewScopeResolver(db *sql.DB) *ScopeResolver {
	return &ScopeResolver{db: db}
}

// CanAccessStudent decides scope per relation kind: admins reach every
// student, students reach themselves, faculty reach students enrolled
// in any course they are assigned to, guardians reach linked students.
// Any other role reaches nobody.
func (r *ScopeResolver) CanAccessStudent(ctx context.Context, user *identity.Profile, studentID string) (bool, error) {
	if user == nil || studentID == "" {
		return false, nil
	}

	switch user.Role {
	case identity.RoleAdmin:
		return true, nil

	case identity.RoleStudent:
		return user.ID == studentID, nil

	case identity.RoleFaculty:
		query := `
			SELECT EXISTS (
				SELECT 1
				FROM faculty_course_assignments fca
				JOIN student_course_enrollments sce ON fca.course_id = sce.course_id
				WHERE fca.faculty_id = $1 AND sce.student_id = $2
			)
		`
		var ok bool
		if err := r.db.QueryRowContext(ctx, query, user.ID, studentID).Scan(&ok); err != nil {
			return false, errs.TransientStore("faculty scope lookup failed", err)
		}
		return ok, nil

	case identity.RoleGuardian:
		query := `
			SELECT EXISTS (
				SELECT 1
				FROM guardian_student_links
				WHERE guardian_id = $1 AND student_id = $2
			)
		`
		var ok bool
		if err := r.db.QueryRowContext(ctx, query, user.ID, studentID).Scan(&ok); err != nil {
			return false, errs.TransientStore("guardian scope lookup failed", err)
		}
		return ok, nil

	default:
		return false, nil
	}
}

// AccessibleStudents returns the full student scope for a user:
// all students for admins, the user themselves for students, the
// deduplicated union of enrollments across assigned courses for
// faculty, and all linked students for guardians.
func (r *ScopeResolver) AccessibleStudents(ctx context.Context, user *identity.Profile) ([]string, error) {
	if user == nil {
		return nil, nil
	}

	switch user.Role {
	case identity.RoleAdmin:
		return r.collectIDs(ctx,
			`SELECT id FROM profiles WHERE role = 'student' ORDER BY id`)

	case identity.RoleStudent:
		return []string{user.ID}, nil

	case identity.RoleFaculty:
		return r.collectIDs(ctx, `
			SELECT DISTINCT sce.student_id
			FROM faculty_course_assignments fca
			JOIN student_course_enrollments sce ON fca.course_id = sce.course_id
			WHERE fca.faculty_id = $1
			ORDER BY sce.student_id
		`, user.ID)

	case identity.RoleGuardian:
		return r.collectIDs(ctx, `
			SELECT student_id
			FROM guardian_student_links
			WHERE guardian_id = $1
			ORDER BY student_id
		`, user.ID)

	default:
		return nil, nil
	}
}

func (r *ScopeResolver) collectIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.TransientStore("scope query failed", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.TransientStore("scope scan failed", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TransientStore("scope iteration failed", err)
	}

	return ids, nil
}
