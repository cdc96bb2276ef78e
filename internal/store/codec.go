package store

import (
	"time"

	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// All of the stores keep each node and each method authorization as a separate JSON record.

func encodeNode(node registry.Node) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("address").String(node.Address)
	obj.Name("capacity").Int(int(node.Capacity))
	obj.Maybe("endpoint", node.Endpoint != "").String(node.Endpoint)
	obj.Name("registeredAt").Int(int(node.RegisteredAt.UnixMilli()))
	obj.Name("sequence").Int(int(node.Sequence))
	obj.End()
	return w.Bytes()
}

func decodeNode(data []byte) (registry.Node, error) {
	var node registry.Node
	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "address":
			node.Address = r.String()
		case "capacity":
			node.Capacity = int64(r.Int())
		case "endpoint":
			node.Endpoint = r.String()
		case "registeredAt":
			node.RegisteredAt = time.UnixMilli(int64(r.Int()))
		case "sequence":
			node.Sequence = uint64(r.Int())
		default:
			r.SkipValue()
		}
	}
	return node, r.Error()
}

func encodeAddresses(addresses []string) []byte {
	w := jwriter.NewWriter()
	arr := w.Array()
	for _, a := range addresses {
		w.String(a)
	}
	arr.End()
	return w.Bytes()
}

func decodeAddresses(data []byte) ([]string, error) {
	var ret []string
	r := jreader.NewReader(data)
	for arr := r.Array(); arr.Next(); {
		ret = append(ret, r.String())
	}
	return ret, r.Error()
}

// stateBuilder accumulates records read from a store, skipping any that cannot be decoded.
type stateBuilder struct {
	state    registry.State
	skipped  int
	firstErr error
}

func (b *stateBuilder) addNode(data []byte) {
	node, err := decodeNode(data)
	if err != nil || node.Address == "" {
		b.skip(err)
		return
	}
	b.state.Nodes = append(b.state.Nodes, node)
}

func (b *stateBuilder) addMethod(method string, data []byte) {
	addresses, err := decodeAddresses(data)
	if err != nil {
		b.skip(err)
		return
	}
	if b.state.Methods == nil {
		b.state.Methods = make(map[string][]string)
	}
	b.state.Methods[method] = addresses
}

func (b *stateBuilder) skip(err error) {
	b.skipped++
	if b.firstErr == nil {
		b.firstErr = err
	}
}
