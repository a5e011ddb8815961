package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidArgument
	AlreadyExists
	FileSystem
	Template
	Command
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case AlreadyExists:
		return "already exists"
	case FileSystem:
		return "filesystem error"
	case Template:
		return "template error"
	case Command:
		return "command error"
	default:
		return "error"
	}
}

// Stage names the part of a scaffold run that failed.
type Stage string

const (
	StageSpecLoad    Stage = "spec-load"
	StageMaterialize Stage = "materialize"
	StageRunCommands Stage = "run-commands"
)

// Error is a classified failure. Path is optional and names the file,
// directory or catalog entry involved.
type Error struct {
	Kind  Kind
	Stage Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stage != "" {
		return string(e.Stage) + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error without a stage; callers higher up attach
// one with WithStage.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// WithStage tags err with a stage. A classified error keeps its kind and
// only gets the stage filled in when it has none; anything else is wrapped
// as KindUnknown.
func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Stage != "" {
			return err
		}
		tagged := *ae
		tagged.Stage = stage
		return &tagged
	}
	return &Error{Kind: KindUnknown, Stage: stage, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// StageOf returns the stage recorded on err, or "" when none is.
func StageOf(err error) Stage {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the failure may succeed when repeated. Only
// filesystem and command failures qualify; nothing here retries by itself.
func Retryable(err error) bool {
	switch KindOf(err) {
	case FileSystem, Command:
		return true
	default:
		return false
	}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case Is(err, InvalidArgument):
		return 2
	default:
		return 1
	}
}
