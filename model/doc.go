// Package model contains the in-memory representation of process
// definitions consumed by the procflow runtime.
//
// A definition is typically loaded from a YAML or JSON document (see
// service/dao/definition) or built programmatically with the With* helpers.
// Only the parts of a definition the runtime interprets are modelled in
// detail: start nodes with their triggers and timers, and the exception
// handlers a process declares. Other nodes are carried as opaque Node values
// and interpreted by the instance Behavior.
package model
