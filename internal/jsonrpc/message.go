package jsonrpc

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Version is the only protocol version the relay accepts.
const Version = "2.0"

// Request is a validated JSON-RPC request. It is immutable once parsed.
type Request struct {
	Method string
	// Params is either an array, an object, or Null if the request had no params.
	Params ldvalue.Value
	// ID is a string, a number, or Null. A Null ID marks a notification.
	ID ldvalue.Value
}

// IsNotification returns true if the request does not expect a response.
func (r Request) IsNotification() bool {
	return r.ID.IsNull()
}

// WithID returns a copy of the request with a different ID.
func (r Request) WithID(id ldvalue.Value) Request {
	r.ID = id
	return r
}

// Response is a JSON-RPC response: either Result or Error is meaningful, never both.
type Response struct {
	ID     ldvalue.Value
	Result ldvalue.Value
	Error  *Error
	// Notification is true if the originating request had no id. Such responses are computed but are
	// not written to the wire.
	Notification bool
}

// IsError returns true if this is an error response.
func (r Response) IsError() bool {
	return r.Error != nil
}

// ResultResponse creates a successful Response for a request.
func ResultResponse(req Request, result ldvalue.Value) Response {
	return Response{ID: req.ID, Result: result, Notification: req.IsNotification()}
}

// ErrorResponse creates an error Response for a request.
func ErrorResponse(req Request, err *Error) Response {
	return Response{ID: req.ID, Error: err, Notification: req.IsNotification()}
}

// ErrorResponseForID creates an error Response that echoes the given id; it is used when there is no
// valid Request to correlate with.
func ErrorResponseForID(id ldvalue.Value, err *Error) Response {
	return Response{ID: id, Error: err}
}

// Parsed is the result of validating one JSON-RPC request object: exactly one of Request and Err is
// non-nil. When the object was invalid but carried a usable id, ID holds it.
type Parsed struct {
	Request *Request
	Err     *Error
	ID      ldvalue.Value
}

// OK returns true if the element was a valid request.
func (p Parsed) OK() bool {
	return p.Request != nil
}

// ErrorResponse returns the error response for an invalid element.
func (p Parsed) ErrorResponse() Response {
	return ErrorResponseForID(p.ID, p.Err)
}

// Payload is a syntactically valid JSON-RPC call: either a single request or a batch.
type Payload struct {
	Elements []Parsed
	Batch    bool
}
