package dberr

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies a failed database operation.
type Kind uint8

const (
	// KindTransient covers any failure surfaced by the store itself: network, timeouts, encoding, server errors.
	KindTransient Kind = iota
	// KindConflict is an insert that violated a uniqueness expectation.
	KindConflict
	// KindNotFound is a required document that does not exist.
	KindNotFound
	// KindValidation is a disallowed input rejected before any database call.
	KindValidation
)

var (
	ErrTransient  = errors.New("transient database error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

func (k Kind) String() string {
	return k.sentinel().Error()
}

func (k Kind) sentinel() error {
	switch k {
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	default:
		return ErrTransient
	}
}

// Error is a classified database error.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// New builds an *Error of the given kind.
func New(kind Kind, op, key string, err error) error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// Validation builds a KindValidation error. No database call should follow it.
func Validation(op, key, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Key: key, Err: errors.New(msg)}
}

// NotFound builds a KindNotFound error.
func NotFound(op, key string) error {
	return &Error{Kind: KindNotFound, Op: op, Key: key}
}

// FromMongo classifies an error returned by the mongo driver.
// Errors that are already classified keep their kind and are re-tagged with op and key. When the key is unchanged
// the inner op is dropped from the message.
func FromMongo(op, key string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		if classified.Key == key {
			// same document, so only the outer op is kept in the message
			return &Error{Kind: classified.Kind, Op: op, Key: key, Err: classified.Err}
		}
		return &Error{Kind: classified.Kind, Op: op, Key: key, Err: err}
	}

	switch {
	case mongo.IsDuplicateKeyError(err):
		return &Error{Kind: KindConflict, Op: op, Key: key, Err: err}
	case errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Kind: KindNotFound, Op: op, Key: key, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return &Error{Kind: KindTransient, Op: op, Key: key, Err: fmt.Errorf("store unavailable: %w", err)}
	default:
		return &Error{Kind: KindTransient, Op: op, Key: key, Err: err}
	}
}

// KindOf returns the kind of err, or KindTransient if err was not classified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindTransient
}
