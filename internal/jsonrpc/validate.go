package jsonrpc

import (
	"encoding/json"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const (
	detailNotObject     = "request must be a JSON object"
	detailBadVersion    = `"jsonrpc" must be "2.0"`
	detailBadMethod     = `"method" must be a non-empty string`
	detailBadID         = `"id" must be a string, number, or null`
	detailBadParams     = `"params" must be an array or an object`
	detailEmptyBatch    = "batch must contain at least one request"
	detailBadTopLevel   = "request must be a JSON object or a non-empty JSON array"
	detailMalformedJSON = "malformed JSON"
)

// ParsePayload parses a raw request body, which may be a single request object or a batch.
//
// If the body is not well-formed JSON, or is not an object or a non-empty array, it returns a single
// top-level error and no elements; no part of a malformed batch is salvaged. Otherwise each element is
// validated independently, and invalid elements are reported in their own position.
func ParsePayload(raw []byte) (Payload, *Error) {
	if !json.Valid(raw) {
		return Payload{}, NewError(ParseError, detailMalformedJSON)
	}
	switch firstByte(raw) {
	case '{':
		return Payload{Elements: []Parsed{validateElement(raw)}}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil { // COVERAGE: already known to be valid JSON
			return Payload{}, NewError(ParseError, detailMalformedJSON)
		}
		if len(items) == 0 {
			return Payload{}, NewError(InvalidBatch, detailEmptyBatch)
		}
		elements := make([]Parsed, 0, len(items))
		for _, item := range items {
			elements = append(elements, validateElement(item))
		}
		return Payload{Elements: elements, Batch: true}, nil
	default:
		return Payload{}, NewError(InvalidRequest, detailBadTopLevel)
	}
}

// ParseRequest parses and validates a single raw request object. Unlike ParsePayload, a JSON array is
// not accepted here.
func ParseRequest(raw []byte) Parsed {
	if !json.Valid(raw) {
		return Parsed{Err: NewError(ParseError, detailMalformedJSON)}
	}
	return validateElement(raw)
}

func validateElement(raw []byte) Parsed {
	var fields map[string]json.RawMessage
	if firstByte(raw) != '{' || json.Unmarshal(raw, &fields) != nil {
		return Parsed{Err: NewError(InvalidRequest, detailNotObject)}
	}

	echoID := ldvalue.Null()
	idValid := true
	if rawID, hasID := fields["id"]; hasID {
		id, idType, err := parseValue(rawID)
		idValid = err == nil && isValidIDType(idType)
		if idValid {
			echoID = id
		}
	}
	invalid := func(kind Kind, detail string) Parsed {
		return Parsed{Err: NewError(kind, detail), ID: echoID}
	}

	if version, ok := stringField(fields, "jsonrpc"); !ok || version != Version {
		return invalid(InvalidRequest, detailBadVersion)
	}
	method, ok := stringField(fields, "method")
	if !ok || method == "" {
		return invalid(InvalidRequest, detailBadMethod)
	}
	if !idValid {
		return invalid(InvalidRequest, detailBadID)
	}
	params := ldvalue.Null()
	if rawParams, hasParams := fields["params"]; hasParams {
		value, paramsType, err := parseValue(rawParams)
		if err != nil || (paramsType != ldvalue.ArrayType && paramsType != ldvalue.ObjectType) {
			return invalid(InvalidParams, detailBadParams)
		}
		params = value
	}

	return Parsed{
		Request: &Request{
			Method: method,
			Params: params,
			ID:     echoID,
		},
		ID: echoID,
	}
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok || firstByte(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func firstByte(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

func isValidIDType(t ldvalue.ValueType) bool {
	switch t {
	case ldvalue.StringType, ldvalue.NumberType, ldvalue.NullType:
		return true
	default:
		return false
	}
}
