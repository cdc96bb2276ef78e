package relay

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rpcrelay/rpc-relay/internal/api"
)

// statusHandler reports the relay version and a summary of the registry. The relay is healthy as
// long as at least one registered node has capacity left; otherwise every call would fail with
// NoEligibleNode.
func statusHandler(relay *Relay) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		nodes := relay.manager.Registry().Nodes()
		resp := api.StatusRep{
			Version: relay.version,
			RelayID: relay.metricsManager.RelayID(),
			Nodes:   api.NodeCountsRep{Registered: len(nodes)},
			Methods: len(relay.manager.Authorization().Methods()),
		}
		for _, n := range nodes {
			if n.Capacity > 0 {
				resp.Nodes.WithCapacity++
			}
		}

		if relay.storeInfo.DBType != "" {
			resp.DataStoreStatus = &api.DataStoreStatusRep{
				Database: relay.storeInfo.DBType,
				DBServer: relay.storeInfo.DBServer,
				DBPrefix: relay.storeInfo.DBPrefix,
				DBTable:  relay.storeInfo.DBTable,
			}
		}

		if relay.cache != nil {
			resp.CachedMethods = append([]string(nil), relay.config.Cache.Methods.Values()...)
			sort.Strings(resp.CachedMethods)
		}

		if resp.Nodes.WithCapacity > 0 {
			resp.Status = api.StatusHealthy
		} else {
			resp.Status = api.StatusDegraded
		}

		data, _ := json.Marshal(resp)

		_, _ = w.Write(data)
	})
}
