// Package errs implements the error taxonomy from the daemon's error-handling
// design: every error observed at a component boundary is classified into one
// of a small number of categories so the control socket and the CLI can react
// without type-switching on concrete error values scattered through the tree.
package errs

import (
	goerrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Category classifies an error per the daemon's error taxonomy.
type Category int

const (
	// Generic is the zero value: an error with no special handling.
	Generic Category = iota
	// UserInput covers bad CLI args or an unknown action name.
	UserInput
	// ConfigParse covers a malformed configuration file.
	ConfigParse
	// Watch covers a failed filesystem watch descriptor.
	Watch
	// MissingCollaborator covers an absent recordings folder or denied
	// system permission — recoverable, the pipeline stays armed.
	MissingCollaborator
	// TransientIO covers a short read or partial write that should simply
	// be retried on the next event.
	TransientIO
	// ActionExecution covers a failed external process invoked by an action.
	ActionExecution
	// Fatal covers conditions that leave the process unable to continue.
	Fatal
)

func (c Category) String() string {
	switch c {
	case UserInput:
		return "UserInputError"
	case ConfigParse:
		return "ConfigParseError"
	case Watch:
		return "WatchError"
	case MissingCollaborator:
		return "MissingCollaborator"
	case TransientIO:
		return "TransientIO"
	case ActionExecution:
		return "ActionExecutionError"
	case Fatal:
		return "FatalError"
	default:
		return "Error"
	}
}

// categorized wraps an error with a Category and a stack-carrying cause.
type categorized struct {
	cat   Category
	cause error
}

func (e *categorized) Error() string {
	return fmt.Sprintf("%s: %v", e.cat, e.cause)
}

func (e *categorized) Unwrap() error {
	return e.cause
}

// Wrap attaches a category and a stack trace (via github.com/pkg/errors) to
// err. A nil err returns nil.
func Wrap(cat Category, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &categorized{cat: cat, cause: errors.Wrap(err, msg)}
}

// New creates a categorized error with a stack trace, with no underlying cause.
func New(cat Category, msg string) error {
	return &categorized{cat: cat, cause: errors.New(msg)}
}

// CategoryOf returns the Category attached to err, or Generic if err was
// never wrapped by this package.
func CategoryOf(err error) Category {
	var c *categorized
	if goerrors.As(err, &c) {
		return c.cat
	}
	return Generic
}
