package model

import "errors"

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindRateLimited
	KindState
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindState:
		return "state"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "internal"
}

// Error is an expected, caller-recoverable failure. Anything that is not an
// *Error is treated as internal.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func ValidationError(message string) *Error {
	return newError(KindValidation, message)
}

// KindOf classifies err, returning KindInternal for unknown errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var ErrorInvalidUsernameOrPassword = newError(KindValidation, "invalid username or password")
var ErrorUnauthenticated = newError(KindUnauthenticated, "authentication credentials were not provided or are invalid")
var ErrorUsernameTaken = newError(KindValidation, "username is already in use")
var ErrorEmailTaken = newError(KindValidation, "email is already in use")

var ErrorUserNotFound = newError(KindNotFound, "user does not exist")
var ErrorRequestNotFound = newError(KindNotFound, "friend request does not exist")

var ErrorForbidden = newError(KindForbidden, "unauthorized")

var ErrorSelfRequest = newError(KindConflict, "request cant be sent to yourself")
var ErrorDuplicatePending = newError(KindConflict, "friend request already sent")
var ErrorAlreadyAccepted = newError(KindConflict, "friend request already accepted")
var ErrorSelfFriendship = newError(KindConflict, "user cannot befriend themselves")

var ErrorRateLimited = newError(KindRateLimited, "friend request limit reached, try after sometime")

var ErrorInvalidState = newError(KindState, "friend request is no longer pending")
var ErrorInvalidTransition = newError(KindState, "unsupported friend request transition")

var ErrorMissingRecipient = newError(KindValidation, "to_user is required")
var ErrorMissingQuery = newError(KindValidation, `query parameter "query" is required`)
var ErrorInvalidPage = newError(KindValidation, "invalid page")
