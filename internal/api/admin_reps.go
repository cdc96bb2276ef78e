package api

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
)

// NodeRep is the JSON representation of a registered node.
type NodeRep struct {
	Address      string                     `json:"address"`
	Capacity     int64                      `json:"capacity"`
	Endpoint     string                     `json:"endpoint,omitempty"`
	RegisteredAt ldtime.UnixMillisecondTime `json:"registeredAt"`
}

// NodeListRep is returned by GET /admin/nodes. Nodes are in registration order.
type NodeListRep struct {
	Nodes []NodeRep `json:"nodes"`
}

// RegisterNodeRep is the request body for PUT /admin/nodes/{address}.
type RegisterNodeRep struct {
	Capacity *int64 `json:"capacity"`
	Endpoint string `json:"endpoint,omitempty"`
}

// MethodRep describes the nodes authorized for one method.
type MethodRep struct {
	Method string   `json:"method"`
	Nodes  []string `json:"nodes"`
	Cost   int64    `json:"cost"`
}

// MethodListRep is returned by GET /admin/methods. Methods are sorted by name.
type MethodListRep struct {
	Methods []MethodRep `json:"methods"`
}

// AllowNodesRep is the request body for POST /admin/methods/{method}/nodes.
type AllowNodesRep struct {
	Nodes []string `json:"nodes"`
}

// AllowNodesResultRep is the response to POST /admin/methods/{method}/nodes. Added lists only the
// addresses that were not already authorized.
type AllowNodesResultRep struct {
	Method string   `json:"method"`
	Added  []string `json:"added"`
	Nodes  []string `json:"nodes"`
}
