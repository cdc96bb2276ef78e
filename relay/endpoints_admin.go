package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/rpcrelay/rpc-relay/internal/api"
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/util"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"

	"github.com/gorilla/mux"
)

const maxAdminBodySize = 64 * 1024

func listNodesHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		nodes := r.manager.Registry().Nodes()
		resp := api.NodeListRep{Nodes: make([]api.NodeRep, 0, len(nodes))}
		for _, n := range nodes {
			resp.Nodes = append(resp.Nodes, makeNodeRep(n))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getNodeHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		address, ok := pathVar(w, req, "address")
		if !ok {
			return
		}
		n, found := r.manager.Registry().Get(address)
		if !found {
			writeAdminError(w, http.StatusNotFound, registry.ErrNodeNotFound)
			return
		}
		writeJSON(w, http.StatusOK, makeNodeRep(n))
	}
}

func registerNodeHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		address, ok := pathVar(w, req, "address")
		if !ok {
			return
		}
		var body api.RegisterNodeRep
		if !readJSONBody(w, req, &body) {
			return
		}
		if body.Capacity == nil {
			writeAdminError(w, http.StatusBadRequest, errCapacityRequired)
			return
		}
		if body.Endpoint != "" {
			if _, err := ct.NewOptURLAbsoluteFromString(body.Endpoint); err != nil {
				writeAdminError(w, http.StatusBadRequest, errEndpointInvalid)
				return
			}
		}

		node, err := r.manager.RegisterNode(req.Context(), registry.NodeSpec{
			Address:  address,
			Capacity: *body.Capacity,
			Endpoint: body.Endpoint,
		})
		if err != nil {
			writeRegistryError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, makeNodeRep(node))
	}
}

func deregisterNodeHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		address, ok := pathVar(w, req, "address")
		if !ok {
			return
		}
		// Removing an unknown node is not an error.
		if _, err := r.manager.DeregisterNode(req.Context(), address); err != nil {
			writeRegistryError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listMethodsHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		methods := r.manager.Authorization().Methods()
		resp := api.MethodListRep{Methods: make([]api.MethodRep, 0, len(methods))}
		for _, m := range methods {
			resp.Methods = append(resp.Methods, r.makeMethodRep(m))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getMethodNodesHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		method, ok := pathVar(w, req, "method")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, r.makeMethodRep(method))
	}
}

func allowMethodNodesHandler(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		method, ok := pathVar(w, req, "method")
		if !ok {
			return
		}
		var body api.AllowNodesRep
		if !readJSONBody(w, req, &body) {
			return
		}
		if len(body.Nodes) == 0 {
			writeAdminError(w, http.StatusBadRequest, errNodesRequired)
			return
		}
		added, err := r.manager.AllowNodeForMethod(req.Context(), method, body.Nodes)
		if err != nil {
			writeRegistryError(w, req, err)
			return
		}
		if added == nil {
			added = []string{}
		}
		writeJSON(w, http.StatusOK, api.AllowNodesResultRep{
			Method: method,
			Added:  added,
			Nodes:  nonNilStrings(r.manager.Authorization().AuthorizedNodes(method)),
		})
	}
}

func makeNodeRep(n registry.Node) api.NodeRep {
	return api.NodeRep{
		Address:      n.Address,
		Capacity:     n.Capacity,
		Endpoint:     util.RedactURL(n.Endpoint),
		RegisteredAt: ldtime.UnixMillisFromTime(n.RegisteredAt),
	}
}

func (r *Relay) makeMethodRep(method string) api.MethodRep {
	return api.MethodRep{
		Method: method,
		Nodes:  nonNilStrings(r.manager.Authorization().AuthorizedNodes(method)),
		Cost:   r.costs.Cost(method),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// pathVar returns a decoded route variable. The router matches on the encoded path, so that an
// escaped slash stays part of the variable.
func pathVar(w http.ResponseWriter, req *http.Request, name string) (string, bool) {
	value, err := url.PathUnescape(mux.Vars(req)[name])
	if err != nil || value == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(util.ErrorJSONMsgf("invalid %s in URL path", name))
		return "", false
	}
	return value, true
}

func readJSONBody(w http.ResponseWriter, req *http.Request, target interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxAdminBodySize))
	if err == nil {
		err = json.Unmarshal(body, target)
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(util.ErrorJSONMsgf("invalid request body: %s", err))
		return false
	}
	return true
}

func writeRegistryError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrNodeNotFound):
		writeAdminError(w, http.StatusNotFound, err)
	case errors.Is(err, registry.ErrInvalidCapacity),
		errors.Is(err, registry.ErrInvalidAddress),
		errors.Is(err, registry.ErrInvalidMethod):
		writeAdminError(w, http.StatusBadRequest, err)
	default:
		logging.GetContextLoggers(req.Context()).Errorf("Administrative request failed: %s", err)
		writeAdminError(w, http.StatusInternalServerError, err)
	}
}

func writeAdminError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(util.ErrorJSONMsg(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, _ := json.Marshal(value)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
