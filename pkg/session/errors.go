package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the requested ID.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session: already exists")

	// ErrSessionBusy is returned when a second live connection tries to
	// attach to a session.
	ErrSessionBusy = errors.New("session: already connected")

	// ErrInvalidID is returned for empty or oversized session IDs.
	ErrInvalidID = errors.New("session: invalid id")

	// ErrChatDisabled is returned by chat operations when no completer is
	// configured.
	ErrChatDisabled = errors.New("session: chat not configured")
)
