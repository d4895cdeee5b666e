// Package telemetry wires OpenTelemetry tracing and metrics for the educator agent.
//
// It sets up the OTLP trace exporter, records redaction and LLM call counters, and
// scrubs span attributes through the content sanitizer so lesson requests never
// leak personal data into exported traces.
package telemetry
