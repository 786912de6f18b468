package audit

import "time"

// Actions recorded in the trail. The set is closed; new actions are
// added here, never invented at call sites.
const (
	ActionReportCreated   = "report_created"
	ActionReportUpdated   = "report_updated"
	ActionReportCompleted = "report_completed"
	ActionReportReverted  = "report_reverted"
	ActionRetentionSweep  = "audit_retention_sweep"
)

// ResourceTypeReport is the resource type for report lifecycle entries.
const ResourceTypeReport = "report"

// Entry is one append-only audit record. Entries are never updated or
// deleted individually; the retention sweep is the only removal path.
type Entry struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// QueryFilters narrows audit trail queries. Zero values mean
// unfiltered.
type QueryFilters struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Since        time.Time
	Until        time.Time
	Limit        int
}
