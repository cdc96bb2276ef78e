package topology

import (
	"os"
	"testing"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/selector"
	st "github.com/rpcrelay/rpc-relay/internal/sharedtest"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRetryInterval = time.Millisecond * 100
	waitTimeout       = time.Second * 3
	waitTick          = time.Millisecond * 20
)

const initialTopologyFile = `
[Node "node1"]
Capacity = 5000000

[Node "node2"]
Capacity = 4000000

[Method "eth_getBalance"]
Node = node1
`

type watcherTestParams struct {
	t        *testing.T
	filePath string
	manager  *registry.Manager
	costs    *selector.CostTable
	watcher  *Watcher
	mockLog  *ldlogtest.MockLog
}

func watcherTest(t *testing.T, action func(watcherTestParams)) {
	st.WithTempDir(func(dir string) {
		filePath := st.WriteTestFile(t, dir, "topology.conf", initialTopologyFile)

		mockLog := ldlogtest.NewMockLog()
		mockLog.Loggers.SetMinLevel(ldlog.Debug)
		defer mockLog.DumpIfTestFailed(t)

		manager := registry.NewManager(registry.NewRegistry(), registry.NewAuthorization(), nil, mockLog.Loggers)
		costs := selector.NewCostTable(1, nil)
		w, err := NewWatcher(filePath, manager, costs, testRetryInterval, mockLog.Loggers)
		require.NoError(t, err)
		defer w.Close()

		action(watcherTestParams{t: t, filePath: filePath, manager: manager, costs: costs, watcher: w, mockLog: mockLog})
	})
}

func (p watcherTestParams) rewrite(content string) {
	require.NoError(p.t, os.WriteFile(p.filePath, []byte(content), 0600))
}

func (p watcherTestParams) awaitCapacity(address string, expected int64) {
	require.Eventually(p.t, func() bool {
		c, err := p.manager.Registry().GetCapacity(address)
		return err == nil && c == expected
	}, waitTimeout, waitTick, "timed out waiting for capacity of %s to be %d", address, expected)
}

func TestWatcherAppliesFileOnStartup(t *testing.T) {
	watcherTest(t, func(p watcherTestParams) {
		c, err := p.manager.Registry().GetCapacity("node1")
		require.NoError(t, err)
		assert.Equal(t, int64(5000000), c)
		assert.Equal(t, []string{"node1"}, p.manager.Authorization().AuthorizedNodes("eth_getBalance"))
		p.mockLog.AssertMessageMatch(t, true, ldlog.Info, "Watching topology file")
	})
}

func TestWatcherReloadsChangedFile(t *testing.T) {
	watcherTest(t, func(p watcherTestParams) {
		p.rewrite(`
[Node "node1"]
Capacity = 5000000

[Node "node2"]
Capacity = 123

[Method "eth_getBalance"]
Node = node1
Node = node2
Cost = 7
`)
		p.awaitCapacity("node2", 123)
		require.Eventually(t, func() bool {
			return p.costs.Cost("eth_getBalance") == 7
		}, waitTimeout, waitTick)
		assert.Equal(t, []string{"node1", "node2"}, p.manager.Authorization().AuthorizedNodes("eth_getBalance"))
	})
}

func TestWatcherKeepsTopologyWhenFileIsInvalid(t *testing.T) {
	watcherTest(t, func(p watcherTestParams) {
		p.rewrite("[Node \"node1\"]\nCapacity = not-a-number\n")
		require.Eventually(t, func() bool {
			return p.mockLog.HasMessageMatch(ldlog.Warn, "Topology file reload failed")
		}, waitTimeout, waitTick)
		assert.True(t, p.manager.Registry().IsRegistered("node2"))

		p.rewrite("[Node \"node1\"]\nCapacity = 77\n")
		p.awaitCapacity("node1", 77)
		require.Eventually(t, func() bool {
			return !p.manager.Registry().IsRegistered("node2")
		}, waitTimeout, waitTick)
	})
}

func TestWatcherFailsForMissingFile(t *testing.T) {
	st.WithTempDir(func(dir string) {
		manager := registry.NewManager(registry.NewRegistry(), registry.NewAuthorization(), nil,
			ldlog.NewDisabledLoggers())
		w, err := NewWatcher(dir+"/missing.conf", manager, nil, 0, ldlog.NewDisabledLoggers())
		assert.Error(t, err)
		assert.Nil(t, w)
	})
}
