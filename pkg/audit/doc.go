// Package audit maintains the append-only activity trail. Writes are
// best-effort by contract: a failed append is logged and counted but
// never propagated, so an audit outage cannot block report lifecycle
// transitions. Reads and the retention sweep are admin-gated.
package audit
