package media

import "errors"

// Error kinds shared by the decoder, the container writer and the pipeline.
// Call sites wrap them with context; classify with errors.Is.
var (
	// ErrIO reports a failure to open, read, write or seek a file.
	ErrIO = errors.New("i/o error")

	// ErrFormat reports a malformed or unsupported WAV structure.
	ErrFormat = errors.New("unsupported or malformed WAV")

	// ErrEmptyInput reports a decoded stream without any samples.
	ErrEmptyInput = errors.New("input contains no samples")
)
