package core

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ErrorKind enumerates the domain failures a handler may report.
type ErrorKind int

const (
	KindInvalidLogin ErrorKind = iota + 1
	KindEmailTaken
	KindUsernameTaken
	KindValidation
)

// DomainFailure is the closed set of failures rewritten by ResponseTranslator.
// Only AppError and *ErrorList implement it.
type DomainFailure interface {
	error
	Messages() []string
	domainFailure()
}

// AppError is a single domain failure with a fixed human readable message.
type AppError struct {
	Kind ErrorKind
	msg  string
}

var (
	ErrInvalidLogin  = AppError{Kind: KindInvalidLogin}
	ErrEmailTaken    = AppError{Kind: KindEmailTaken}
	ErrUsernameTaken = AppError{Kind: KindUsernameTaken}
)

// ValidationFailure wraps a validator message. Nothing else about the
// rejected field (in particular its value) is retained.
func ValidationFailure(message string) AppError {
	return AppError{Kind: KindValidation, msg: message}
}

func (e AppError) Error() string {
	switch e.Kind {
	case KindInvalidLogin:
		return "invalid login credentials"
	case KindEmailTaken:
		return "email already taken"
	case KindUsernameTaken:
		return "username already taken"
	case KindValidation:
		return e.msg
	default:
		return "unknown error"
	}
}

// Messages returns the single message of e.
func (e AppError) Messages() []string { return []string{e.Error()} }

func (AppError) domainFailure() {}

// ErrorList accumulates AppErrors for one request in insertion order.
type ErrorList struct {
	errs []AppError
}

// NewErrorList returns an empty list.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add appends e.
func (l *ErrorList) Add(e AppError) {
	l.errs = append(l.errs, e)
}

// Empty reports whether nothing was added.
func (l *ErrorList) Empty() bool {
	return l == nil || len(l.errs) == 0
}

// Len returns the number of accumulated errors.
func (l *ErrorList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.errs)
}

// Err finalizes the list: nil when empty, otherwise the list itself as an error.
func (l *ErrorList) Err() error {
	if l.Empty() {
		return nil
	}
	return l
}

// Errors returns a copy of the accumulated errors.
func (l *ErrorList) Errors() []AppError {
	if l == nil {
		return nil
	}
	out := make([]AppError, len(l.errs))
	copy(out, l.errs)
	return out
}

// Messages returns every message in insertion order.
func (l *ErrorList) Messages() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, l.Len())
	for _, e := range l.errs {
		out = append(out, e.Error())
	}
	return out
}

func (l *ErrorList) Error() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.Messages(), "; ")
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As.
func (l *ErrorList) Unwrap() []error {
	out := make([]error, 0, l.Len())
	for _, e := range l.errs {
		out = append(out, e)
	}
	return out
}

func (*ErrorList) domainFailure() {}

// FromValidation converts validator output into ValidationFailure values,
// ordered by field name so responses are stable. Internal validator errors
// (bad rule wiring) are returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for name := range fieldErrs {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	list := NewErrorList()
	for _, name := range fields {
		if fe := fieldErrs[name]; fe != nil {
			list.Add(ValidationFailure(fe.Error()))
		}
	}
	return list.Err()
}
