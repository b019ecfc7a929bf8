package provider

import (
	"context"
	"errors"
	"io/fs"

	"archive-viewer/internal/archive"
)

// Code categorizes provider failures.
type Code int

const (
	// CodeOpen means the backing store could not be opened.
	CodeOpen Code = iota + 1
	// CodeEncryptedNoPassword means the archive is encrypted and no password
	// was supplied. Retry the open with one.
	CodeEncryptedNoPassword
	// CodeEntryNotFound means the entry or folder is not in the index.
	CodeEntryNotFound
	// CodeRead means extracting or rendering one entry failed.
	CodeRead
	// CodeDiscovery means folder or file enumeration failed.
	CodeDiscovery
	// CodeDisposed means the provider was already closed.
	CodeDisposed
	// CodeCanceled means the context was canceled or timed out.
	CodeCanceled
)

func (c Code) String() string {
	switch c {
	case CodeOpen:
		return "open failed"
	case CodeEncryptedNoPassword:
		return "password required"
	case CodeEntryNotFound:
		return "entry not found"
	case CodeRead:
		return "read failed"
	case CodeDiscovery:
		return "discovery failed"
	case CodeDisposed:
		return "provider closed"
	case CodeCanceled:
		return "canceled"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every provider operation.
type Error struct {
	Code Code
	// Op is the operation that failed ("open", "folders", "read", ...).
	Op string
	// Entry is the entry or folder involved, if any.
	Entry string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Entry != "" {
		msg += " (" + e.Entry + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrOpen                = &Error{Code: CodeOpen}
	ErrEncryptedNoPassword = &Error{Code: CodeEncryptedNoPassword}
	ErrEntryNotFound       = &Error{Code: CodeEntryNotFound}
	ErrRead                = &Error{Code: CodeRead}
	ErrDiscovery           = &Error{Code: CodeDiscovery}
	ErrDisposed            = &Error{Code: CodeDisposed}
	ErrCanceled            = &Error{Code: CodeCanceled}
)

// wrap builds an *Error. Context errors always become CodeCanceled and an
// err that is already a provider error is returned unchanged.
func wrap(code Code, op, entry string, err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = CodeCanceled
	}
	return &Error{Code: code, Op: op, Entry: entry, Err: err}
}

// CodeOf returns the Code of a provider error, or 0 for other errors.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// UserMessage turns err into a short message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch CodeOf(err) {
	case CodeEncryptedNoPassword:
		return "This file is password protected. Enter the password to open it."
	case CodeOpen:
		switch {
		case archive.IsPasswordError(err):
			return "Wrong password."
		case errors.Is(err, fs.ErrNotExist):
			return "File not found."
		case errors.Is(err, fs.ErrPermission):
			return "Permission denied."
		case errors.Is(err, archive.ErrUnsupportedFormat):
			return "Unsupported file format."
		default:
			return "Cannot read archive. The file may be damaged."
		}
	case CodeRead:
		if archive.IsPasswordError(err) {
			return "Cannot read image: wrong password."
		}
		return "Cannot read image: wrong password or corrupt entry."
	case CodeDiscovery:
		return "Cannot list the contents of this file."
	case CodeEntryNotFound:
		return "Image not found."
	case CodeDisposed:
		return "The file has been closed."
	case CodeCanceled:
		return "Operation canceled."
	default:
		return err.Error()
	}
}
