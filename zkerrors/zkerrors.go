// Package zkerrors defines the stable error taxonomy surfaced by the tree,
// transaction processor, and snapshot codec to their callers.
//
// The code set and names are carried over from the teacher package's
// zkError/Error type (itself a thin wrapper around the C zookeeper client's
// ZOK/ZNONODE/... constants) but reworked as pure Go values with no cgo
// dependency, per spec.md §7.
package zkerrors

import "github.com/pkg/errors"

// Code is a stable 32-bit error code, mirroring spec.md §7's taxonomy.
type Code int32

const (
	OK                    Code = 0
	NoNode                Code = -101
	NodeExists            Code = -110
	RuntimeInconsistency  Code = -2
	BadVersion            Code = -103
	BadArguments          Code = -8
	NotEmpty              Code = -111
	NoChildrenForEphemeral Code = -120
	EphemeralOnLocalSession Code = -13
	InvalidACL            Code = -114
	Unimplemented         Code = -6
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case NoNode:
		return "no node"
	case NodeExists:
		return "node exists"
	case RuntimeInconsistency:
		return "runtime inconsistency"
	case BadVersion:
		return "bad version"
	case BadArguments:
		return "bad arguments"
	case NotEmpty:
		return "not empty"
	case NoChildrenForEphemeral:
		return "no children for ephemeral"
	case EphemeralOnLocalSession:
		return "ephemeral not allowed on local session"
	case InvalidACL:
		return "invalid acl"
	case Unimplemented:
		return "unimplemented"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by the tree and transaction processor.
// Op and Path are attached for logging; Err, when present, is the wrapped
// underlying cause (decode failures, etc.) preserved via pkg/errors so its
// stack survives past the TransactionProcessor boundary.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given code/op/path with no wrapped cause.
func New(code Code, op, path string) *Error {
	return &Error{Code: code, Op: op, Path: path}
}

// Wrap builds an *Error that wraps cause with the given code/op/path,
// preserving cause's stack trace via pkg/errors.
func Wrap(cause error, code Code, op, path string) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: errors.WithStack(cause)}
}

// CodeOf extracts the Code from err, defaulting to RuntimeInconsistency if
// err is not a *Error.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr.Code
	}
	return RuntimeInconsistency
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
