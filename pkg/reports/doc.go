// Package reports implements the academic report lifecycle: draft
// saves, the guarded complete and revert transitions, and scope-gated
// reads with redacted draft projections for non-admin viewers.
//
// Transitions are written as compare-and-swap updates conditioned on
// the status observed at read time. When two writers race, exactly one
// passes the guard; the loser gets a conflict, never a silent
// overwrite.
package reports
