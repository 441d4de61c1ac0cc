package avi

import "errors"

var (
	// ErrState is returned when Begin, AppendFrame and Finalize are called
	// out of order or after a failure.
	ErrState = errors.New("avi: writer used out of order")

	// ErrFrameSize is returned when a frame does not match Header.FrameBytes.
	ErrFrameSize = errors.New("avi: frame size mismatch")

	// ErrFrameCount is returned by Finalize when the appended frame count
	// differs from the one declared in the header.
	ErrFrameCount = errors.New("avi: frame count mismatch")

	// ErrTooLarge is returned when the container would exceed the 4 GiB
	// limit of 32-bit RIFF size fields.
	ErrTooLarge = errors.New("avi: container exceeds RIFF size limit")

	// ErrInvalid is returned by Inspect for structurally broken files.
	ErrInvalid = errors.New("avi: invalid container")
)
