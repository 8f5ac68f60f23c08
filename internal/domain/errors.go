package domain

import "errors"

var (
	// ErrValidation signals a malformed inbound request.
	ErrValidation = errors.New("validation failed")
	// ErrDependency signals an unreachable or misbehaving external collaborator.
	ErrDependency = errors.New("dependency failure")
	// ErrTimeout signals an orchestration exceeding its wall-clock bound.
	ErrTimeout = errors.New("orchestration timed out")
	// ErrOrchestration signals a reasoning-process answer violating the response contract.
	ErrOrchestration = errors.New("orchestration contract violation")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
