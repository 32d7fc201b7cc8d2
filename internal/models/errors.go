package models

import "errors"

// Sentinel errors shared by services and mapped to HTTP statuses in handlers.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrInvalidParent = errors.New("parent must be a top-level comment on the same post")
	ErrNotIdeaPost   = errors.New("post is not an idea")
	ErrSelfFollow    = errors.New("cannot follow yourself")
	ErrSelfChat      = errors.New("cannot open a conversation with yourself")
	ErrEmptyMessage  = errors.New("message needs content or an image")
	ErrClientRefUsed = errors.New("client ref already used by another message")
)
