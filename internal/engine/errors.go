package engine

import "fmt"

// Kind identifies a category of engine failure. Kind values form a small
// taxonomy carried by the single Error type; user-facing callers switch on Kind rather
// than on error strings.
type Kind int

const (
	// NodeNotFound is raised internally when navigate fails to match a path
	// part. It is never returned to a VFS caller directly — the facade
	// translates it into FileNotFound or FolderNotFound based on what the
	// caller expected to find.
	NodeNotFound Kind = iota
	FileNotFound
	FolderNotFound
	// NodeExists is raised internally by ExistsCheck. Like NodeNotFound it
	// is a base kind; callers that care about the exact flavor use
	// FileExists.
	NodeExists
	FileExists
	FolderNotEmpty
	CrossFSOperation
	CorruptFormat
	ShortRead
	InternalError
)

func (k Kind) String() string {
	switch k {
	case NodeNotFound:
		return "NodeNotFound"
	case FileNotFound:
		return "FileNotFound"
	case FolderNotFound:
		return "FolderNotFound"
	case NodeExists:
		return "NodeExists"
	case FileExists:
		return "FileExists"
	case FolderNotEmpty:
		return "FolderNotEmpty"
	case CrossFSOperation:
		return "CrossFSOperation"
	case CorruptFormat:
		return "CorruptFormat"
	case ShortRead:
		return "ShortRead"
	case InternalError:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type raised anywhere in the engine or facade.
// Every failure surfaced to a caller is an *Error; callers distinguish
// cases with Is or by inspecting Kind directly.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Wrapped error
}

func New(kind Kind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

func Wrap(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Message: err.Error(), Wrapped: err}
}

// Internal wraps an unexpected lower-level failure as InternalError, the
// uniform surface every other unexpected error is funneled through.
func Internal(path string, err error) *Error {
	return Wrap(InternalError, path, err)
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// AsNotFound translates an internal NodeNotFound into the FileNotFound or
// FolderNotFound the caller actually expected, leaving every other error
// (including a specific kind already chosen deeper in the stack) untouched.
func AsNotFound(err error, wantFolder bool) error {
	if e, ok := err.(*Error); ok && e.Kind == NodeNotFound {
		if wantFolder {
			return New(FolderNotFound, e.Path, e.Message)
		}
		return New(FileNotFound, e.Path, e.Message)
	}
	return err
}
