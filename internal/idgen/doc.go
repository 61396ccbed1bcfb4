// Package idgen wraps the identifier generators so that they can be stubbed in
// tests. It lives under `internal` because callers should not rely on its exact
// behaviour or API – they should treat identifiers as opaque strings.
//
// Instance identifiers are random UUIDs; event identifiers are ULIDs so that
// published lifecycle events sort by creation time.
package idgen
