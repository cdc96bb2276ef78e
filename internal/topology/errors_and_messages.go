package topology

import "fmt"

const (
	logMsgRegistered             = "Topology: registered node %q with capacity %d"
	logMsgKeptStored             = "Topology: node %q was restored from storage; keeping its stored capacity"
	logMsgDeregistered           = "Topology: node %q is no longer listed; deregistered it"
	logMsgAllowed                = "Topology: allowed node(s) %v for method %q"
	logMsgCannotRevoke           = "Topology: node %q is no longer listed for method %q, but authorizations cannot be revoked while the relay is running"
	logMsgCostChanged            = "Topology: cost of method %q is now %d"
	logMsgChangeFailed           = "Topology: could not apply change: %s"
	logMsgWatching               = "Watching topology file %s for changes"
	logMsgReloaded               = "Reloaded topology from %s"
	logMsgReloadError            = "Topology file reload failed; file is invalid or possibly incomplete (error: %s)"
	logMsgReloadFileNotFound     = "Topology file not found; keeping the current topology"
	logMsgReloadUnchangedRetry   = "Topology file has not changed since the last failed attempt; will retry"
	logMsgReloadNoMoreRetries    = "Giving up on reloading the topology file after repeated failures: %s"
	logMsgReloadApplyError       = "Topology file was reloaded but some changes could not be applied"
	logMsgWatcherEvent           = "Got topology file watcher event: %+v"
	logMsgWatcherError           = "Topology file watcher error: %s"
	logMsgIgnoringObsoleteSignal = "Ignoring obsolete retry signal"
)

func errCannotReadTopologyFile(path string, err error) error {
	return fmt.Errorf("unable to read topology file %s: %w", path, err)
}

func errCreateWatcherFailed(path string, err error) error {
	return fmt.Errorf("unable to watch topology file %s: %w", path, err)
}
