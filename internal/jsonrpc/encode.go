package jsonrpc

import (
	"encoding/json"
	"errors"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

var (
	errResponseNotObject    = errors.New("response is not a JSON object")
	errResponseBadVersion   = errors.New(`response does not have "jsonrpc":"2.0"`)
	errResponseNoResult     = errors.New("response has neither a result nor an error")
	errResponseBadErrorBody = errors.New("response error is not a valid JSON-RPC error object")
	errTrailingData         = errors.New("unexpected data after JSON value")
	errMalformedResponse    = errors.New("response is not well-formed JSON")
)

// WriteToJSONWriter serializes the request, omitting params if there were none.
func (r Request) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	obj.Name("jsonrpc").String(Version)
	obj.Name("method").String(r.Method)
	if !r.Params.IsNull() {
		r.Params.WriteToJSONWriter(obj.Name("params"))
	}
	if !r.ID.IsNull() {
		r.ID.WriteToJSONWriter(obj.Name("id"))
	}
	obj.End()
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	r.WriteToJSONWriter(&w)
	return w.Bytes(), w.Error()
}

// WriteToJSONWriter serializes the response.
func (r Response) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	obj.Name("jsonrpc").String(Version)
	if r.Error != nil {
		r.Error.WriteToJSONWriter(obj.Name("error"))
	} else {
		r.Result.WriteToJSONWriter(obj.Name("result"))
	}
	r.ID.WriteToJSONWriter(obj.Name("id"))
	obj.End()
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	r.WriteToJSONWriter(&w)
	return w.Bytes(), w.Error()
}

// WriteToJSONWriter serializes the error object.
func (e *Error) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	obj.Name("code").Int(e.Code)
	obj.Name("message").String(e.Message)
	if !e.Data.IsNull() {
		e.Data.WriteToJSONWriter(obj.Name("data"))
	}
	obj.End()
}

// EncodeResponses serializes responses for the wire. Notification responses are left out. A batch is
// written as an array; a single response as an object. If there is nothing to write, it returns nil.
func EncodeResponses(responses []Response, batch bool) []byte {
	visible := make([]Response, 0, len(responses))
	for _, r := range responses {
		if !r.Notification {
			visible = append(visible, r)
		}
	}
	if len(visible) == 0 {
		return nil
	}
	w := jwriter.NewWriter()
	if batch {
		arr := w.Array()
		for _, r := range visible {
			r.WriteToJSONWriter(&w)
		}
		arr.End()
	} else {
		visible[0].WriteToJSONWriter(&w)
	}
	return w.Bytes()
}

// ParseResponse parses a JSON-RPC response object received from a backend node. The result is kept
// exactly as the node wrote it if it contains numbers too wide for a float64.
func ParseResponse(raw []byte) (Response, error) {
	var fields map[string]json.RawMessage
	if firstByte(raw) != '{' {
		if !json.Valid(raw) {
			return Response{}, errMalformedResponse
		}
		return Response{}, errResponseNotObject
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Response{}, err
	}
	if version, ok := stringField(fields, "jsonrpc"); !ok || version != Version {
		return Response{}, errResponseBadVersion
	}
	var resp Response
	if rawID, ok := fields["id"]; ok {
		id, err := ParseValue(rawID)
		if err != nil { // COVERAGE: already known to be valid JSON
			return Response{}, err
		}
		resp.ID = id
	}
	if rawError, ok := fields["error"]; ok && firstByte(rawError) != 'n' {
		var errValue ldvalue.Value
		if err := json.Unmarshal(rawError, &errValue); err != nil { // COVERAGE: already known to be valid JSON
			return Response{}, err
		}
		code := errValue.GetByKey("code")
		message := errValue.GetByKey("message")
		if errValue.Type() != ldvalue.ObjectType || !code.IsInt() || message.Type() != ldvalue.StringType {
			return Response{}, errResponseBadErrorBody
		}
		resp.Error = &Error{Code: code.IntValue(), Message: message.StringValue(), Data: errValue.GetByKey("data")}
		return resp, nil
	}
	rawResult, ok := fields["result"]
	if !ok {
		return Response{}, errResponseNoResult
	}
	result, err := ParseValue(rawResult)
	if err != nil { // COVERAGE: already known to be valid JSON
		return Response{}, err
	}
	resp.Result = result
	return resp, nil
}
