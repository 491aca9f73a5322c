package mpv

import (
	"errors"

	"github.com/deepteams/mpv/internal/picture"
)

var (
	// ErrResourceExhausted is returned when no picture slot is free.
	ErrResourceExhausted = picture.ErrExhausted

	// ErrStrideChanged is returned when a new picture would not match the
	// line size the context already decodes with.
	ErrStrideChanged = picture.ErrStrideChanged

	ErrInvalidState   = errors.New("mpv: frame start outside setup state")
	ErrSizeValidation = errors.New("mpv: invalid picture dimensions")
	ErrAllocation     = errors.New("mpv: buffer allocation failed")
	ErrPartialMerge   = errors.New("mpv: thread context merge failed")
	ErrNotInitialized = errors.New("mpv: context not initialized")
)
