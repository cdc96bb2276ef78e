package events

import (
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Names of the SSE events published by the feed.
const (
	SnapshotEvent         = "snapshot"
	NodeRegisteredEvent   = "node-registered"
	NodeDeregisteredEvent = "node-deregistered"
	MethodAllowedEvent    = "method-allowed"
)

// The SSE server calls Data() once per connected client, so the JSON is computed lazily and only once.
type deferredEvent struct {
	name   string
	result *util.StringMemoizer
}

func (e deferredEvent) Event() string { return e.name }
func (e deferredEvent) Id() string    { return "" } //nolint:golint,stylecheck
func (e deferredEvent) Data() string  { return e.result.Get() }

// MakeSnapshotEvent creates the event that is sent to each new subscriber, describing every node and
// every method authorization.
func MakeSnapshotEvent(nodes []registry.Node, methods map[string][]string, methodOrder []string) eventsource.Event {
	return deferredEvent{
		name: SnapshotEvent,
		result: util.NewStringMemoizer(func() string {
			w := jwriter.NewWriter()
			obj := w.Object()
			nodesArr := obj.Name("nodes").Array()
			for _, n := range nodes {
				writeNode(&w, n)
			}
			nodesArr.End()
			methodsObj := obj.Name("methods").Object()
			for _, m := range methodOrder {
				writeStrings(methodsObj.Name(m), methods[m])
			}
			methodsObj.End()
			obj.End()
			return string(w.Bytes())
		}),
	}
}

// MakeNodeRegisteredEvent creates a "node-registered" event.
func MakeNodeRegisteredEvent(node registry.Node) eventsource.Event {
	return deferredEvent{
		name: NodeRegisteredEvent,
		result: util.NewStringMemoizer(func() string {
			w := jwriter.NewWriter()
			writeNode(&w, node)
			return string(w.Bytes())
		}),
	}
}

// MakeNodeDeregisteredEvent creates a "node-deregistered" event.
func MakeNodeDeregisteredEvent(address string) eventsource.Event {
	return deferredEvent{
		name: NodeDeregisteredEvent,
		result: util.NewStringMemoizer(func() string {
			w := jwriter.NewWriter()
			obj := w.Object()
			obj.Name("address").String(address)
			obj.End()
			return string(w.Bytes())
		}),
	}
}

// MakeMethodAllowedEvent creates a "method-allowed" event. The added addresses are the ones that were
// new in this change; all is the method's complete set afterward.
func MakeMethodAllowedEvent(method string, added, all []string) eventsource.Event {
	return deferredEvent{
		name: MethodAllowedEvent,
		result: util.NewStringMemoizer(func() string {
			w := jwriter.NewWriter()
			obj := w.Object()
			obj.Name("method").String(method)
			writeStrings(obj.Name("added"), added)
			writeStrings(obj.Name("nodes"), all)
			obj.End()
			return string(w.Bytes())
		}),
	}
}

func writeNode(w *jwriter.Writer, n registry.Node) {
	obj := w.Object()
	obj.Name("address").String(n.Address)
	obj.Name("capacity").Int(int(n.Capacity))
	obj.Maybe("endpoint", n.Endpoint != "").String(n.Endpoint)
	obj.Name("registeredAt").Int(int(n.RegisteredAt.UnixMilli()))
	obj.End()
}

func writeStrings(w *jwriter.Writer, values []string) {
	arr := w.Array()
	for _, v := range values {
		w.String(v)
	}
	arr.End()
}
