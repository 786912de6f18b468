package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the full schema as ordered migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					id VARCHAR(64) PRIMARY KEY,
					role VARCHAR(32) NOT NULL,
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					full_name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(email)
				);

				CREATE INDEX idx_profiles_role ON profiles(role);
				CREATE INDEX idx_profiles_status ON profiles(status);
			`,
		},
		{
			Version:     2,
			Description: "Create reports table",
			SQL: `
				CREATE TABLE IF NOT EXISTS reports (
					id VARCHAR(64) PRIMARY KEY,
					student_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					status VARCHAR(32) NOT NULL DEFAULT 'draft',
					term VARCHAR(64) NOT NULL,
					academic_year VARCHAR(32) NOT NULL,
					total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
					overall_grade VARCHAR(8) NOT NULL DEFAULT '',
					completed_by VARCHAR(64) REFERENCES profiles(id) ON DELETE SET NULL,
					completed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(student_id, term, academic_year)
				);

				CREATE INDEX idx_reports_student_id ON reports(student_id);
				CREATE INDEX idx_reports_status ON reports(status);
				CREATE INDEX idx_reports_updated_at ON reports(updated_at);
			`,
		},
		{
			Version:     3,
			Description: "Create grade_entries table",
			SQL: `
				CREATE TABLE IF NOT EXISTS grade_entries (
					id VARCHAR(64) PRIMARY KEY,
					report_id VARCHAR(64) NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
					course_id VARCHAR(64) NOT NULL,
					class_score DOUBLE PRECISION NOT NULL DEFAULT 0,
					exam_score DOUBLE PRECISION NOT NULL DEFAULT 0,
					total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
					grade VARCHAR(8) NOT NULL DEFAULT '',
					position INT NOT NULL DEFAULT 0,
					remark TEXT NOT NULL DEFAULT '',
					UNIQUE(report_id, course_id)
				);

				CREATE INDEX idx_grade_entries_report_id ON grade_entries(report_id);
			`,
		},
		{
			Version:     4,
			Description: "Create faculty_course_assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS faculty_course_assignments (
					id BIGSERIAL PRIMARY KEY,
					faculty_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					course_id VARCHAR(64) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(faculty_id, course_id)
				);

				CREATE INDEX idx_fca_faculty_id ON faculty_course_assignments(faculty_id);
				CREATE INDEX idx_fca_course_id ON faculty_course_assignments(course_id);
			`,
		},
		{
			Version:     5,
			Description: "Create student_course_enrollments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS student_course_enrollments (
					id BIGSERIAL PRIMARY KEY,
					student_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					course_id VARCHAR(64) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(student_id, course_id)
				);

				CREATE INDEX idx_sce_student_id ON student_course_enrollments(student_id);
				CREATE INDEX idx_sce_course_id ON student_course_enrollments(course_id);
			`,
		},
		{
			Version:     6,
			Description: "Create guardian_student_links table",
			SQL: `
				CREATE TABLE IF NOT EXISTS guardian_student_links (
					id BIGSERIAL PRIMARY KEY,
					guardian_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					student_id VARCHAR(64) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(guardian_id, student_id)
				);

				CREATE INDEX idx_gsl_guardian_id ON guardian_student_links(guardian_id);
				CREATE INDEX idx_gsl_student_id ON guardian_student_links(student_id);
			`,
		},
		{
			Version:     7,
			Description: "Create audit_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id VARCHAR(64) PRIMARY KEY,
					user_id VARCHAR(64) NOT NULL,
					action VARCHAR(64) NOT NULL,
					resource_type VARCHAR(64) NOT NULL,
					resource_id VARCHAR(64) NOT NULL,
					details JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_logs_user_id ON audit_logs(user_id);
				CREATE INDEX idx_audit_logs_action ON audit_logs(action);
				CREATE INDEX idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
				CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	// Create migration tracking table
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
