package jsonrpc

import (
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Kind identifies one of the failure categories that the relay reports to callers. The Kind name is
// used as the "message" of the JSON-RPC error object.
type Kind string

// All of the error kinds the relay can report.
const (
	ParseError           Kind = "ParseError"
	InvalidRequest       Kind = "InvalidRequest"
	InvalidBatch         Kind = "InvalidBatch"
	InvalidParams        Kind = "InvalidParams"
	InternalError        Kind = "InternalError"
	NoEligibleNode       Kind = "NoEligibleNode"
	ExecutionError       Kind = "ExecutionError"
	Timeout              Kind = "Timeout"
	InsufficientCapacity Kind = "InsufficientCapacity"
)

// Standard JSON-RPC 2.0 error codes, plus relay-specific codes in the implementation-defined server
// error range.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeNoEligibleNode       = -32001
	CodeExecutionError       = -32002
	CodeTimeout              = -32003
	CodeInsufficientCapacity = -32004
)

func (k Kind) String() string {
	return string(k)
}

// Code returns the JSON-RPC error code for this Kind.
func (k Kind) Code() int {
	switch k {
	case ParseError:
		return CodeParseError
	case InvalidRequest, InvalidBatch:
		return CodeInvalidRequest
	case InvalidParams:
		return CodeInvalidParams
	case NoEligibleNode:
		return CodeNoEligibleNode
	case ExecutionError:
		return CodeExecutionError
	case Timeout:
		return CodeTimeout
	case InsufficientCapacity:
		return CodeInsufficientCapacity
	default:
		return CodeInternalError
	}
}

// Error is a JSON-RPC error object. It also implements the error interface so it can be returned
// from Go functions.
type Error struct {
	Code    int
	Message string
	Data    ldvalue.Value
}

// NewError creates an Error of the given Kind. If detail is non-empty, it becomes the error's data.
func NewError(kind Kind, detail string) *Error {
	e := &Error{Code: kind.Code(), Message: string(kind)}
	if detail != "" {
		e.Data = ldvalue.String(detail)
	}
	return e
}

// NewErrorf is the same as NewError but uses a format string for the detail.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// NewErrorWithData creates an Error of the given Kind with arbitrary data.
func NewErrorWithData(kind Kind, data ldvalue.Value) *Error {
	return &Error{Code: kind.Code(), Message: string(kind), Data: data}
}

// Kind returns the Kind whose name matches the error message, or InternalError if it is not one of
// ours.
func (e *Error) Kind() Kind {
	switch k := Kind(e.Message); k {
	case ParseError, InvalidRequest, InvalidBatch, InvalidParams, NoEligibleNode,
		ExecutionError, Timeout, InsufficientCapacity:
		return k
	}
	return InternalError
}

func (e *Error) Error() string {
	if e.Data.IsNull() {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	if e.Data.Type() == ldvalue.StringType {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Code, e.Data.StringValue())
	}
	return fmt.Sprintf("%s (%d): %s", e.Message, e.Code, e.Data.JSONString())
}
