// Package apperr defines the error kinds surfaced to API clients and their stable codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindSuccess          Kind = 0
	KindUserNotLogin     Kind = 300
	KindTokenInvalid     Kind = 301
	KindParse            Kind = 400
	KindUserExists       Kind = 401
	KindCaptcha          Kind = 402
	KindUserNotExists    Kind = 403
	KindUserPasswdError  Kind = 404
	KindProductNotExists Kind = 405
	KindProductNotOpen   Kind = 406
	KindEmailVerifyCode  Kind = 407
	KindEmailDiff        Kind = 408
	KindFrequent         Kind = 409
	KindPasswordTooShort Kind = 410
	KindInvalidEmail     Kind = 411
	KindGroupNotExists   Kind = 412
	KindInternal         Kind = 500
	KindDatabase         Kind = 501
	KindSendEmail        Kind = 502
)

var defaultMessages = map[Kind]string{
	KindSuccess:          "success",
	KindUserNotLogin:     "user not signed in",
	KindTokenInvalid:     "token invalid or expired",
	KindParse:            "invalid request",
	KindUserExists:       "user already exists",
	KindCaptcha:          "captcha mismatch",
	KindUserNotExists:    "user does not exist",
	KindUserPasswdError:  "wrong password",
	KindProductNotExists: "product does not exist",
	KindProductNotOpen:   "product not opened for this user",
	KindEmailVerifyCode:  "email verification code mismatch",
	KindEmailDiff:        "email differs from the verified address",
	KindFrequent:         "too frequent, try again later",
	KindPasswordTooShort: "password must be at least 6 characters",
	KindInvalidEmail:     "invalid email address",
	KindGroupNotExists:   "group does not exist",
	KindInternal:         "internal error",
	KindDatabase:         "database error",
	KindSendEmail:        "send email failed",
}

// Code returns the numeric code sent to clients.
func (k Kind) Code() int { return int(k) }

func (k Kind) String() string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a client-facing failure. Cause is kept for logs and never rendered.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New builds an error of kind k; an empty msg falls back to the kind's default text.
func New(k Kind, msg string) *Error {
	if msg == "" {
		msg = k.String()
	}
	return &Error{Kind: k, Message: msg}
}

func Wrap(k Kind, cause error) *Error {
	return &Error{Kind: k, Message: k.String(), Cause: cause}
}

func Parse(msg string) *Error { return New(KindParse, msg) }

func Database(cause error) *Error { return Wrap(KindDatabase, cause) }

func Internal(cause error) *Error { return Wrap(KindInternal, cause) }

func SendEmail(cause error) *Error { return Wrap(KindSendEmail, cause) }

var (
	ErrUserNotLogin     = New(KindUserNotLogin, "")
	ErrTokenInvalid     = New(KindTokenInvalid, "")
	ErrUserExists       = New(KindUserExists, "")
	ErrCaptcha          = New(KindCaptcha, "")
	ErrUserNotExists    = New(KindUserNotExists, "")
	ErrUserPasswdError  = New(KindUserPasswdError, "")
	ErrProductNotExists = New(KindProductNotExists, "")
	ErrProductNotOpen   = New(KindProductNotOpen, "")
	ErrEmailVerifyCode  = New(KindEmailVerifyCode, "")
	ErrEmailDiff        = New(KindEmailDiff, "")
	ErrFrequent         = New(KindFrequent, "")
	ErrPasswordTooShort = New(KindPasswordTooShort, "")
	ErrInvalidEmail     = New(KindInvalidEmail, "")
	ErrGroupNotExists   = New(KindGroupNotExists, "")
	ErrDatabase         = New(KindDatabase, "")
	ErrInternal         = New(KindInternal, "")
)

// KindOf reports the kind carried by err. Unknown errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage hides storage and internal details from clients.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal.String()
	}
	switch e.Kind {
	case KindDatabase, KindInternal:
		return e.Kind.String()
	}
	return e.Message
}
