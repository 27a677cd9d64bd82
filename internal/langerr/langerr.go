// Package langerr implements the two error taxonomies the language
// reports: compile errors (first one wins, reported with panic-mode
// suppression already applied by the caller) and runtime errors (reported
// with a full call-stack trace). Both format to a fixed wire text.
//
// Host-side failures (file I/O, stdin reads) are not part of either
// taxonomy; WrapHost keeps their underlying cause attached via
// github.com/pkg/errors so `%+v` still prints a stack trace for operators,
// without widening the language-level error shape.
package langerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// CompileError is one reported compiler diagnostic.
type CompileError struct {
	Line    int
	Lexeme  string
	AtEnd   bool
	Message string
}

func (e *CompileError) Error() string {
	where := fmt.Sprintf("at '%s'", e.Lexeme)
	if e.AtEnd {
		where = "at end"
	}
	return fmt.Sprintf("COMPILE ERROR: [Line %d] Error %s: %s", e.Line, where, e.Message)
}

// Frame is one entry in a runtime error's call-stack trace, formatted as
// "[Line N] in <name>" (or "in script" when Name is empty).
type Frame struct {
	Line int
	Name string
}

// RuntimeError is the single first runtime error that aborts a run,
// carrying the frame stack active at the moment it was raised, innermost
// (the frame that raised it) first.
type RuntimeError struct {
	Message string
	Frames  []Frame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "RUNTIME ERROR: %s", e.Message)
	for _, f := range e.Frames {
		name := f.Name
		if name == "" {
			name = "script"
		}
		fmt.Fprintf(&b, "\n[Line %d] in %s", f.Line, name)
	}
	return b.String()
}

// WrapHost attaches msg to a host-side cause (file open/read failure,
// stdin error) that sits below either language taxonomy.
func WrapHost(cause error, msg string) error {
	return errors.Wrap(cause, msg)
}
