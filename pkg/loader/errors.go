package loader

import "errors"

var (
	ErrConnectivity = errors.New("connectivity")
	ErrInvalidData  = errors.New("invalid data")
	ErrRetrieval    = errors.New("retrieval")
	ErrNotFound     = errors.New("not found")
	ErrSave         = errors.New("save")
)

// Error ties one of the error kinds above to the underlying cause, so that
// errors.Is matches either of them.
type Error struct {
	Kind  error
	Cause error
}

func NewError(kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
