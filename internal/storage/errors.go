package storage

import "errors"

var (
	// ErrNotFound is returned when a referenced model, version, offer, intervention,
	// report or purchase order does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is not allowed in the current
	// lifecycle state of an entity.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyExists is returned for a duplicate 1:1 resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNoActiveVersion is returned when a component model has no publishable template.
	ErrNoActiveVersion = errors.New("no active template version")
	// ErrNoSystems is returned when totals are requested for an empty system selection.
	ErrNoSystems = errors.New("no systems selected")
	// ErrInvalidLevel is returned when a maintenance level does not apply to a model.
	ErrInvalidLevel = errors.New("invalid maintenance level")
	ErrInvalidInput = errors.New("invalid input")
)
