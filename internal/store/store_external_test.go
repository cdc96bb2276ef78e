//go:build store_external_tests
// +build store_external_tests

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests require local Redis (port 6379), Consul (port 8500), and DynamoDB (port 8000) servers.

const (
	testDynamoDBTable    = "RPC_RELAY_TEST_TABLE"
	testDynamoDBEndpoint = "http://localhost:8000"
)

func uniquePrefix() string {
	return fmt.Sprintf("test%d", time.Now().UnixNano())
}

func testPersister(t *testing.T, p Persister) {
	ctx := context.Background()

	state, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 0)
	assert.Len(t, state.Methods, 0)

	node1 := registry.Node{Address: "node1", Capacity: 5000000, RegisteredAt: time.UnixMilli(1000), Sequence: 1}
	node2 := registry.Node{Address: "node2", Capacity: 4000000, Endpoint: "http://node2", RegisteredAt: time.UnixMilli(2000), Sequence: 2}
	require.NoError(t, p.PutNode(ctx, node1))
	require.NoError(t, p.PutNode(ctx, node2))
	require.NoError(t, p.PutMethod(ctx, "eth_getBalance", []string{"node1"}))
	require.NoError(t, p.PutMethod(ctx, "eth_getBalance", []string{"node1", "node2"}))

	node1.Capacity = 4999000
	require.NoError(t, p.PutNode(ctx, node1))
	require.NoError(t, p.DeleteNode(ctx, "node2"))
	require.NoError(t, p.DeleteNode(ctx, "unknown"))

	state, err = p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Nodes, 1)
	assert.Equal(t, "node1", state.Nodes[0].Address)
	assert.Equal(t, int64(4999000), state.Nodes[0].Capacity)
	assert.Equal(t, uint64(1), state.Nodes[0].Sequence)
	assert.Equal(t, map[string][]string{"eth_getBalance": {"node1", "node2"}}, state.Methods)
}

func TestRedisPersister(t *testing.T) {
	p := newRedisPersister("redis://localhost:6379", "", uniquePrefix(), ldlog.NewDisabledLoggers())
	defer p.Close() //nolint:errcheck
	testPersister(t, p)
}

func TestConsulPersister(t *testing.T) {
	p, err := newConsulPersister(config.ConsulConfig{Host: "localhost:8500"}, uniquePrefix(), ldlog.NewDisabledLoggers())
	require.NoError(t, err)
	testPersister(t, p)
}

func TestDynamoDBPersister(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	url, _ := ct.NewOptURLAbsoluteFromString(testDynamoDBEndpoint)
	dbConfig := config.DynamoDBConfig{Enabled: true, TableName: testDynamoDBTable, URL: url}
	staticCredentials := func(o *dynamodb.Options) {
		o.Credentials = credentials.NewStaticCredentialsProvider("dummy", "not", "used")
	}
	p, err := newDynamoDBPersister(context.Background(), dbConfig, uniquePrefix(),
		[]func(*dynamodb.Options){staticCredentials}, ldlog.NewDisabledLoggers())
	require.NoError(t, err)
	require.NoError(t, createTableIfNecessary(p.client))
	testPersister(t, p)
}

func createTableIfNecessary(client *dynamodb.Client) error {
	ctx := context.Background()
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(testDynamoDBTable)}); err == nil {
		return nil
	}
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testDynamoDBTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(tablePartitionKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(tableSortKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(tablePartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(tableSortKey), KeyType: types.KeyTypeRange},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(1),
			WriteCapacityUnits: aws.Int64(1),
		},
	})
	return err
}
