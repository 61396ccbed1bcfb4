// Package tracing wraps OpenTelemetry so runtime operations can be traced
// with StartSpan and EndSpan. Spans are no-ops until a provider is installed
// with Init or InitWithExporter.
package tracing
