// Package rbac implements the authorization model for report records:
// a fixed role→capability permission table, a relationship-graph scope
// resolver deciding which students a user may touch, and an authorizer
// composing both into per-action decisions.
//
// The permission table is frozen configuration constructed once at
// process start. Scope resolution is a pure read over the stored
// relationship edges (faculty↔course↔student, guardian↔student) and
// may optionally be fronted by a short-TTL cache; cached results are
// identical to the on-demand join, modulo the TTL window after an
// edge write.
package rbac
