// Package observability provides structured JSON logging and
// Prometheus metrics for the report core.
package observability
