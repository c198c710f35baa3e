package model

import "fmt"

// Kind classifies a domain error.
type Kind int

const (
	KindValidation Kind = iota
	KindDuplicateName
	KindCategory
	KindOrigin
	KindBook
	KindRecipe
	KindNotFound
	KindRepository
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindDuplicateName:
		return "DuplicateNameError"
	case KindCategory:
		return "CategoryError"
	case KindOrigin:
		return "OriginError"
	case KindBook:
		return "BookError"
	case KindRecipe:
		return "RecipeError"
	case KindNotFound:
		return "NotFoundError"
	case KindRepository:
		return "RepositoryError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// validation reports whether k is ValidationError or one of its subkinds.
func (k Kind) validation() bool {
	switch k {
	case KindValidation, KindDuplicateName, KindCategory, KindOrigin, KindBook, KindRecipe:
		return true
	}
	return false
}

// Error is a recoverable domain error. Its message is meant to be shown to
// the user verbatim.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches sentinels by kind. Every validation subkind also matches
// ErrValidation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindValidation && e.Kind.validation()
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrDuplicateName = &Error{Kind: KindDuplicateName}
	ErrCategory      = &Error{Kind: KindCategory}
	ErrOrigin        = &Error{Kind: KindOrigin}
	ErrBook          = &Error{Kind: KindBook}
	ErrRecipe        = &Error{Kind: KindRecipe}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrRepository    = &Error{Kind: KindRepository}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a RepositoryError that keeps cause in the chain.
func Wrap(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...) + ": " + cause.Error()
	return &wrapped{err: &Error{Kind: KindRepository, Msg: msg}, cause: cause}
}

type wrapped struct {
	err   *Error
	cause error
}

func (w *wrapped) Error() string        { return w.err.Msg }
func (w *wrapped) Is(target error) bool { return w.err.Is(target) }
func (w *wrapped) Unwrap() error        { return w.cause }
