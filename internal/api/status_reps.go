package api

// Values of StatusRep.Status.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// StatusRep is the JSON representation returned by the status endpoint.
//
// This is exported for use in integration test code.
type StatusRep struct {
	Status          string              `json:"status"`
	Version         string              `json:"version"`
	RelayID         string              `json:"relayId,omitempty"`
	Nodes           NodeCountsRep       `json:"nodes"`
	Methods         int                 `json:"methods"`
	DataStoreStatus *DataStoreStatusRep `json:"dataStoreStatus,omitempty"`
	CachedMethods   []string            `json:"cachedMethods,omitempty"`
}

// NodeCountsRep summarizes the registry in StatusRep.
type NodeCountsRep struct {
	Registered   int `json:"registered"`
	WithCapacity int `json:"withCapacity"`
}

// DataStoreStatusRep describes the database that the registry is persisted to, if any.
type DataStoreStatusRep struct {
	Database string `json:"database"`
	DBServer string `json:"dbServer,omitempty"`
	DBPrefix string `json:"dbPrefix,omitempty"`
	DBTable  string `json:"dbTable,omitempty"`
}
