package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightclass/reportcard/pkg/errs"
	"github.com/brightclass/reportcard/pkg/identity"
	"github.com/brightclass/reportcard/pkg/observability"
	"github.com/brightclass/reportcard/pkg/rbac"
)

// defaultQueryLimit caps audit queries that do not ask for a limit.
const defaultQueryLimit = 100

// Recorder appends, queries, and sweeps the audit trail. Logging goes
// through the context logger, annotated with the acting user when the
// caller put one there.
type Recorder struct {
	db      *sql.DB
	table   rbac.PermissionTable
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRecorder creates an audit recorder. metrics may be nil.
func NewRecorder(db *sql.DB, table rbac.PermissionTable, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		db:      db,
		table:   table,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record appends one entry to the trail. Missing id and timestamp are
// filled in. Returns false when the write failed; the failure is
// logged and counted but never surfaced as an error, because a dropped
// audit entry must not unwind the state change it describes.
func (r *Recorder) Record(ctx context.Context, e Entry) bool {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}

	details, err := json.Marshal(e.Details)
	if err != nil {
		r.countFailure()
		observability.FromContext(ctx).WithError(err).WithField("action", e.Action).Warn("audit details not serializable")
		return false
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, details, e.Timestamp,
	)
	if err != nil {
		r.countFailure()
		observability.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"action":      e.Action,
			"resource_id": e.ResourceID,
		}).Warn("audit entry dropped")
		return false
	}

	if r.metrics != nil {
		r.metrics.AuditEntriesTotal.WithLabelValues(e.Action).Inc()
	}
	return true
}

// Query returns audit entries newest first. Only users holding the
// manage_users capability may read the trail.
func (r *Recorder) Query(ctx context.Context, user *identity.Profile, f QueryFilters) ([]Entry, error) {
	if !user.IsActive() {
		return nil, errs.Unauthorized("User account is inactive")
	}
	if !r.table.HasCapability(user, rbac.CapManageUsers) {
		return nil, errs.Forbidden("Only administrators can view the audit trail")
	}

	query := `SELECT id, user_id, action, resource_type, resource_id, details, created_at FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if f.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, f.UserID)
		argCount++
	}
	if f.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, f.Action)
		argCount++
	}
	if f.ResourceType != "" {
		query += fmt.Sprintf(" AND resource_type = $%d", argCount)
		args = append(args, f.ResourceType)
		argCount++
	}
	if f.ResourceID != "" {
		query += fmt.Sprintf(" AND resource_id = $%d", argCount)
		args = append(args, f.ResourceID)
		argCount++
	}
	if !f.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, f.Since)
		argCount++
	}
	if !f.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", argCount)
		args = append(args, f.Until)
		argCount++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCount)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.storeErr("query_audit", "audit query failed", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var details []byte
		err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &details, &e.Timestamp)
		if err != nil {
			return nil, r.storeErr("query_audit", "audit scan failed", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, r.storeErr("query_audit", "audit details decode failed", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.storeErr("query_audit", "audit iteration failed", err)
	}

	return entries, nil
}

// Cleanup deletes entries older than the retention window and returns
// the number removed. Only users holding the manage_users capability
// may sweep; retention must be positive. The sweep itself is recorded
// in the trail.
func (r *Recorder) Cleanup(ctx context.Context, actor *identity.Profile, retention time.Duration) (int64, error) {
	if !actor.IsActive() {
		return 0, errs.Unauthorized("User account is inactive")
	}
	if !r.table.HasCapability(actor, rbac.CapManageUsers) {
		return 0, errs.Forbidden("Only administrators can purge audit logs")
	}
	if retention <= 0 {
		return 0, errs.Validation("Retention period must be positive")
	}

	cutoff := r.now().Add(-retention)
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, r.storeErr("cleanup_audit", "audit cleanup failed", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, r.storeErr("cleanup_audit", "audit cleanup failed", err)
	}

	if r.metrics != nil {
		r.metrics.AuditEntriesPurgedTotal.Add(float64(purged))
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"purged": purged,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("audit retention sweep finished")

	r.Record(ctx, Entry{
		UserID:       actor.ID,
		Action:       ActionRetentionSweep,
		ResourceType: "audit_logs",
		ResourceID:   "retention",
		Details: map[string]interface{}{
			"purged":         purged,
			"cutoff":         cutoff.Format(time.RFC3339),
			"retention_days": int(retention.Hours() / 24),
		},
	})

	return purged, nil
}

func (r *Recorder) countFailure() {
	if r.metrics == nil {
		return
	}
	r.metrics.AuditWriteFailuresTotal.Inc()
}

// storeErr counts the fault against its operation and returns it as a
// transient store error.
func (r *Recorder) storeErr(operation, message string, err error) error {
	if r.metrics != nil {
		r.metrics.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
	return errs.TransientStore(message, err)
}
