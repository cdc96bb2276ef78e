// Package jsonrpc contains the JSON-RPC 2.0 envelope types used by the relay, along with the logic for
// validating untrusted request payloads and serializing responses.
//
// Arbitrary JSON values (params, ids, and results) are represented with ldvalue.Value so that they can
// be passed through the relay without being reinterpreted.
package jsonrpc
