// Package middleware provides HTTP middleware for the studiolink server:
// Prometheus request metrics and OpenTelemetry tracing.
package middleware
