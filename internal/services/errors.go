package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain failure that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidCredentials   = &Error{Kind: KindValidation, Message: "Invalid credentials"}
	ErrAccountDeactivated   = &Error{Kind: KindForbidden, Message: "Account is deactivated"}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Message: "Not authenticated"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrLastAdminProtected   = &Error{Kind: KindForbidden, Message: "Cannot remove the last active admin"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrProjectNotFound      = &Error{Kind: KindNotFound, Message: "Project not found"}
	ErrTaskNotFound         = &Error{Kind: KindNotFound, Message: "Task not found"}
	ErrTaskAlreadyCompleted = &Error{Kind: KindForbidden, Message: "Task is already completed"}
	ErrDuplicateTask        = &Error{Kind: KindConflict, Message: "Task already exists"}
	ErrDuplicateProject     = &Error{Kind: KindConflict, Message: "Project already exists"}
	ErrDuplicateEmail       = &Error{Kind: KindConflict, Message: "user already exists"}
	ErrNoAssignees          = &Error{Kind: KindValidation, Message: "At least one assignee is required"}
	ErrEmptyComment         = &Error{Kind: KindValidation, Message: "Comment text is required"}
	ErrInvalidSetupToken    = &Error{Kind: KindValidation, Message: "Invalid or expired link"}
	ErrPasswordTooShort     = &Error{Kind: KindValidation, Message: "Password must be at least 6 characters"}
)

// KindOf classifies err; anything that is not a domain error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
