// Package repository provides MySQL persistence for the booking core:
// the movie catalog with cast and crew credits, show layouts, pricing
// rules and booking records. Sentinel errors declared here let handlers
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrMovieNotFound is returned when a movie id has no catalog row.
// Handlers should translate this into an HTTP 404 response.
var ErrMovieNotFound = errors.New("movie not found")

// ErrConflict is returned when a write cannot proceed because of
// dependent records, such as deleting a movie that still has scheduled
// shows. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
