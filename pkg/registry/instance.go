// Package registry tracks execution daemon instances and resolves which
// live instance should run a given split.
package registry

// Instance is one addressable daemon replica. Immutable snapshot; liveness
// may be stale between lookup and use (accepted race, not corrected here).
type Instance struct {
	// Host is the address the instance serves on.
	Host string `json:"host"`
	// Hostname is the name the instance advertised itself under. Lookups
	// are indexed by it; it may differ from the name clients dial.
	Hostname      string `json:"hostname"`
	ExecutionPort int    `json:"execution_port"`
	ResultPort    int    `json:"result_port"`
	Alive         bool   `json:"alive"`
}
