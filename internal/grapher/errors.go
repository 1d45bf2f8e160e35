package grapher

import (
	"errors"
	"fmt"
)

// Sentinel errors for graphing a file. ErrParse, ErrUnresolvablePath and
// ErrOutOfBounds invalidate the whole file; ErrResolve is scoped to a single
// reference and never escapes Graph.
var (
	// ErrParse is returned when the oracle cannot analyze the file at all.
	ErrParse = errors.New("parse failure")

	// ErrUnresolvablePath is returned when a module path is neither inside
	// the project nor below a packaging or runtime directory.
	ErrUnresolvablePath = errors.New("unresolvable module path")

	// ErrOutOfBounds is returned when a line number exceeds the file's line
	// count, meaning the oracle and the source text disagree.
	ErrOutOfBounds = errors.New("position out of bounds")

	// ErrResolve marks an oracle failure while resolving one reference.
	ErrResolve = errors.New("reference resolution failure")
)

// FileError ties a file-scoped failure to the file being graphed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("graph %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
