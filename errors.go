package procflow

import "errors"

var (
	// ErrUnknownDefinition is returned when the definition repository has no such definition
	ErrUnknownDefinition = errors.New("procflow: unknown definition")
	// ErrInstanceNotFound is returned when no live instance has the requested id
	ErrInstanceNotFound = errors.New("procflow: instance not found")
	// ErrUnsupportedDefinitionKind is returned when no instance factory serves the definition kind
	ErrUnsupportedDefinitionKind = errors.New("procflow: unsupported definition kind")
	// ErrDuplicateCorrelationKey is returned when the correlation key is owned by another instance of the definition
	ErrDuplicateCorrelationKey = errors.New("procflow: duplicate correlation key")
	// ErrDisposed is returned by operations invoked after Dispose
	ErrDisposed = errors.New("procflow: runtime disposed")
)
