package storage

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the requested id
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when a session id is registered twice
	ErrSessionExists = errors.New("session already exists")
)
