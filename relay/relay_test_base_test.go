package relay

import (
	"testing"

	c "github.com/rpcrelay/rpc-relay/config"
	st "github.com/rpcrelay/rpc-relay/internal/sharedtest"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"

	"github.com/stretchr/testify/require"
)

const testAdminKey = "admin-secret"

// Options for withStartedRelayCustom.
type relayTestBehavior struct {
	// All of the following are opt-in so the false behavior is the one we're most likely to use in tests.
	useRealExecutor         bool // true = send calls over HTTP to the node endpoints; false = use a RecordingExecutor
	doNotEnableDebugLogging bool // true = leave the default log level in place; false = enable debug logging
}

// Components that are passed from withStartedRelay/withStartedRelayCustom to the test logic.
type relayTestParams struct {
	relay    *Relay
	executor *st.RecordingExecutor
	mockLog  *ldlogtest.MockLog
}

func mustOptIntGreaterThanZero(n int) ct.OptIntGreaterThanZero {
	o, err := ct.NewOptIntGreaterThanZero(n)
	if err != nil {
		panic(err)
	}
	return o
}

// makeDemoConfig returns the configuration used by most tests: two nodes, and eth_getBalance
// authorized only for node1.
func makeDemoConfig() c.Config {
	return c.Config{
		Main: c.MainConfig{AdminKey: testAdminKey},
		Node: map[string]*c.NodeConfig{
			"node1": {Capacity: 5000000},
			"node2": {Capacity: 4000000},
		},
		Method: map[string]*c.MethodConfig{
			"eth_getBalance": {Node: []string{"node1"}},
		},
	}
}

// withStartedRelay initializes a Relay instance, runs a block of test code against it, and then
// ensures that everything is cleaned up.
//
// Log output is redirected to a MockLog which can be read by tests.
func withStartedRelay(t *testing.T, config c.Config, action func(relayTestParams)) {
	withStartedRelayCustom(t, config, relayTestBehavior{}, action)
}

// withStartedRelayCustom is the same as withStartedRelay but allows more customization of the
// test setup.
func withStartedRelayCustom(t *testing.T, config c.Config, behavior relayTestBehavior, action func(relayTestParams)) {
	mockLog := ldlogtest.NewMockLog()
	defer mockLog.DumpIfTestFailed(t)

	if !config.Main.LogLevel.IsDefined() && !behavior.doNotEnableDebugLogging {
		config.Main.LogLevel = c.NewOptLogLevel(ldlog.Debug)
		mockLog.Loggers.SetMinLevel(ldlog.Debug)
	}
	options := relayInternalOptions{loggers: mockLog.Loggers}
	var executor *st.RecordingExecutor
	if !behavior.useRealExecutor {
		executor = st.NewRecordingExecutor()
		options.executor = executor
	}
	relay, err := newRelayInternal(config, options)
	require.NoError(t, err)
	defer relay.Close()

	action(relayTestParams{
		relay:    relay,
		executor: executor,
		mockLog:  mockLog,
	})
}
