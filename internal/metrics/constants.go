package metrics

import (
	"go.opencensus.io/tag"
)

const (
	defaultMetricsPrefix = "rpc_relay"
)

var (
	relayIDTagKey, _    = tag.NewKey("relayId")    //nolint:gochecknoglobals
	rpcMethodTagKey, _  = tag.NewKey("rpcMethod")  //nolint:gochecknoglobals
	nodeTagKey, _       = tag.NewKey("node")       //nolint:gochecknoglobals
	outcomeTagKey, _    = tag.NewKey("outcome")    //nolint:gochecknoglobals
	routeTagKey, _      = tag.NewKey("route")      //nolint:gochecknoglobals
	httpMethodTagKey, _ = tag.NewKey("httpMethod") //nolint:gochecknoglobals

	callTags  = []tag.Key{relayIDTagKey, rpcMethodTagKey, nodeTagKey, outcomeTagKey} //nolint:gochecknoglobals
	routeTags = []tag.Key{relayIDTagKey, routeTagKey, httpMethodTagKey}              //nolint:gochecknoglobals
)
