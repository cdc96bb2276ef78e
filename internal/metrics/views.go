package metrics

import (
	"sync"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	callsMeasureName       = "calls"
	callLatencyMeasureName = "call_latency_ms"
	callCostMeasureName    = "call_cost"
	requestsMeasureName    = "requests"
	nodeCapacityName       = "node_capacity"
)

var (
	registerViewsOnce sync.Once //nolint:gochecknoglobals

	callsMeasure       = stats.Int64(callsMeasureName, "number of relayed JSON-RPC calls", stats.UnitDimensionless)      //nolint:gochecknoglobals
	callLatencyMeasure = stats.Float64(callLatencyMeasureName, "time taken by relayed calls", stats.UnitMilliseconds)    //nolint:gochecknoglobals
	callCostMeasure    = stats.Int64(callCostMeasureName, "capacity consumed by relayed calls", stats.UnitDimensionless) //nolint:gochecknoglobals
	requestsMeasure    = stats.Int64(requestsMeasureName, "number of HTTP requests", stats.UnitDimensionless)            //nolint:gochecknoglobals
	nodeCapacity       = stats.Int64(nodeCapacityName, "remaining capacity of a node", stats.UnitDimensionless)          //nolint:gochecknoglobals

	callsView = &view.View{ //nolint:gochecknoglobals
		Measure:     callsMeasure,
		Aggregation: view.Count(),
		TagKeys:     callTags,
	}
	callLatencyView = &view.View{ //nolint:gochecknoglobals
		Measure:     callLatencyMeasure,
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000),
		TagKeys:     []tag.Key{relayIDTagKey, rpcMethodTagKey, nodeTagKey},
	}
	callCostView = &view.View{ //nolint:gochecknoglobals
		Measure:     callCostMeasure,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{relayIDTagKey, nodeTagKey},
	}
	requestsView = &view.View{ //nolint:gochecknoglobals
		Measure:     requestsMeasure,
		Aggregation: view.Count(),
		TagKeys:     routeTags,
	}
	nodeCapacityView = &view.View{ //nolint:gochecknoglobals
		Measure:     nodeCapacity,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{relayIDTagKey, nodeTagKey},
	}
)

func getViews() []*view.View {
	return []*view.View{callsView, callLatencyView, callCostView, requestsView, nodeCapacityView}
}
