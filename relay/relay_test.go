package relay

import (
	"testing"

	c "github.com/rpcrelay/rpc-relay/config"
	st "github.com/rpcrelay/rpc-relay/internal/sharedtest"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelayRejectsInvalidConfig(t *testing.T) {
	config := makeDemoConfig()
	config.Method["eth_chainId"] = &c.MethodConfig{}
	relay, err := NewRelay(config, ldlog.NewDisabledLoggers())
	assert.Error(t, err)
	assert.Nil(t, relay)
}

func TestNewRelayRejectsNegativeCapacity(t *testing.T) {
	config := makeDemoConfig()
	config.Node["node3"] = &c.NodeConfig{Capacity: -1}
	relay, err := NewRelay(config, ldlog.NewDisabledLoggers())
	assert.Error(t, err)
	assert.Nil(t, relay)
}

func TestNewRelayFailsForMissingTopologyFile(t *testing.T) {
	st.WithTempDir(func(dir string) {
		config := makeDemoConfig()
		config.Main.TopologyFile = dir + "/missing.conf"
		relay, err := NewRelay(config, ldlog.NewDisabledLoggers())
		assert.Error(t, err)
		assert.Nil(t, relay)
	})
}

func TestRelayAppliesConfiguredTopology(t *testing.T) {
	withStartedRelay(t, makeDemoConfig(), func(p relayTestParams) {
		reg := p.relay.manager.Registry()
		capacity, err := reg.GetCapacity("node1")
		require.NoError(t, err)
		assert.Equal(t, int64(5000000), capacity)
		capacity, err = reg.GetCapacity("node2")
		require.NoError(t, err)
		assert.Equal(t, int64(4000000), capacity)
		assert.Equal(t, []string{"node1"}, p.relay.manager.Authorization().AuthorizedNodes("eth_getBalance"))
	})
}

func TestRelayAppliesTopologyFile(t *testing.T) {
	st.WithTempDir(func(dir string) {
		path := st.WriteTestFile(t, dir, "topology.conf", `
[Node "node3"]
Capacity = 300

[Method "eth_gasPrice"]
Node = node3
Cost = 2
`)
		config := makeDemoConfig()
		config.Main.TopologyFile = path
		withStartedRelay(t, config, func(p relayTestParams) {
			assert.True(t, p.relay.manager.Registry().IsRegistered("node1"))
			capacity, err := p.relay.manager.Registry().GetCapacity("node3")
			require.NoError(t, err)
			assert.Equal(t, int64(300), capacity)
			assert.Equal(t, int64(2), p.relay.costs.Cost("eth_gasPrice"))

			_, body := p.postRPC(t, "/", `{"jsonrpc":"2.0","method":"eth_gasPrice","id":2}`)
			assert.Nil(t, parseSingleResponse(t, body).Error)
			capacity, err = p.relay.manager.Registry().GetCapacity("node3")
			require.NoError(t, err)
			assert.Equal(t, int64(298), capacity)
		})
	})
}

func TestRelaySetsLogLevel(t *testing.T) {
	mockLog := ldlogtest.NewMockLog()
	config := makeDemoConfig()
	config.Main.LogLevel = c.NewOptLogLevel(ldlog.Warn)
	relay, err := newRelayInternal(config, relayInternalOptions{loggers: mockLog.Loggers,
		executor: st.NewRecordingExecutor()})
	require.NoError(t, err)
	defer relay.Close()

	assert.Len(t, mockLog.GetOutput(ldlog.Info), 0)
}

func TestRelayCloseIsIdempotent(t *testing.T) {
	relay, err := newRelayInternal(makeDemoConfig(), relayInternalOptions{loggers: ldlog.NewDisabledLoggers(),
		executor: st.NewRecordingExecutor()})
	require.NoError(t, err)
	assert.NoError(t, relay.Close())
	assert.NoError(t, relay.Close())
}
