package model

import "errors"

var (
	// Auth related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Content related errors
	ErrArticleNotFound = errors.New("article not found")
	ErrSkillNotFound   = errors.New("skill not found")
	ErrContactNotFound = errors.New("contact not found")
	ErrAvatarNotFound  = errors.New("avatar not found")
	ErrCommentNotFound = errors.New("comment not found")

	// Recycle bin related errors
	ErrEntryNotFound   = errors.New("recycle bin entry not found")
	ErrRestoreConflict = errors.New("a live record with this id already exists")
	ErrUnknownDataType = errors.New("unknown data type")

	// Comment limiter errors
	ErrRateLimited = errors.New("too many requests")

	// File related errors
	ErrFileNotFound   = errors.New("file not found")
	ErrUnsafeFilename = errors.New("unsafe filename")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
