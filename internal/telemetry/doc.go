// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing, logs and metrics across the pantry server and worker.
//
// All three signals are exported over OTLP/HTTP to a single collector
// endpoint; Go runtime metrics are collected alongside the business metrics.
package telemetry
