package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// A float64 holds every decimal number of up to 15 significant digits exactly.
const maxExactDigits = 15

// ParseValue parses a JSON value that the relay passes through: request params and ids, and results
// from nodes. A value containing any number with more significant digits than a float64 can hold is
// returned as ldvalue.Raw, so that it is written out again exactly as it was received.
func ParseValue(raw []byte) (ldvalue.Value, error) {
	value, _, err := parseValue(raw)
	return value, err
}

// parseValue also returns the JSON type of the value, since a Raw value does not report it.
func parseValue(raw []byte) (ldvalue.Value, ldvalue.ValueType, error) {
	var decoded ldvalue.Value
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ldvalue.Null(), ldvalue.NullType, err
	}
	if !hasWideNumber(raw) {
		return decoded, decoded.Type(), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil { // COVERAGE: already known to be valid JSON
		return ldvalue.Null(), ldvalue.NullType, err
	}
	return ldvalue.Raw(buf.Bytes()), decoded.Type(), nil
}

func hasWideNumber(raw []byte) bool {
	if !bytes.ContainsAny(raw, "0123456789") {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	for {
		token, err := dec.Token()
		if err != nil {
			return false
		}
		if n, ok := token.(json.Number); ok && isWideNumber(n) {
			return true
		}
	}
}

func isWideNumber(n json.Number) bool {
	digits := 0
	leading := true
	for _, ch := range string(n) {
		switch {
		case ch == 'e' || ch == 'E':
			return digits > maxExactDigits
		case ch >= '0' && ch <= '9':
			if leading && ch == '0' {
				continue
			}
			leading = false
			digits++
		}
	}
	return digits > maxExactDigits
}

// CanonicalJSON rewrites a JSON value with object keys in sorted order and numbers exactly as they
// were written, so that equivalent params always produce the same text.
func CanonicalJSON(value ldvalue.Value) (string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(value.JSONString())))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) { // COVERAGE: JSONString always writes one value
		return "", errTrailingData
	}
	data, err := json.Marshal(generic)
	if err != nil { // COVERAGE: decoded values can always be marshaled
		return "", err
	}
	return string(data), nil
}
