// Package telemetry provides the observability surface of the service: a
// Prometheus metrics registry covering admission decisions and the audit
// pipeline, and OpenTelemetry tracer-provider bootstrap.
package telemetry
