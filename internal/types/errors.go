package types

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrorKind classifies why a file or a run failed.
type ErrorKind string

const (
	// KindSchema: a required column is missing from the export.
	KindSchema ErrorKind = "schema"

	// KindParse: the file name carries no date, or the payload is not CSV.
	KindParse ErrorKind = "parse"

	// KindValidation: prepared records failed record validation.
	KindValidation ErrorKind = "validation"

	// KindTransport: discovery, fetch or store calls failed.
	KindTransport ErrorKind = "transport"
)

// Sentinel causes wrapped by PipelineError.
var (
	ErrMalformedFileName = errors.New("malformed file name")
	ErrMissingColumn     = errors.New("missing column")
)

// PipelineError identifies the file and the kind of failure.
type PipelineError struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %q: %v", e.Kind, e.File, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a kind and file name.
func NewPipelineError(kind ErrorKind, file string, err error) *PipelineError {
	return &PipelineError{Kind: kind, File: file, Err: err}
}

// KindOf reports the kind of the first PipelineError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsFileScoped reports whether err only invalidates the file that caused it.
func IsFileScoped(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindSchema, KindParse, KindValidation:
		return true
	}
	return false
}
