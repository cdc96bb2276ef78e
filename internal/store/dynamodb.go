package store

import (
	"context"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	tablePartitionKey = "namespace"
	tableSortKey      = "key"
	dynamoDBDataAttr  = "data"
)

// dynamoDBPersister keeps each record as an item whose partition key is "<prefix>:nodes" or
// "<prefix>:methods" and whose sort key is the node address or method name. The table must already
// exist with string keys named "namespace" and "key".
type dynamoDBPersister struct {
	client  *dynamodb.Client
	table   string
	prefix  string
	loggers ldlog.Loggers
}

func newDynamoDBPersister(
	ctx context.Context,
	dbConfig config.DynamoDBConfig,
	prefix string,
	optFns []func(*dynamodb.Options),
	loggers ldlog.Loggers,
) (*dynamoDBPersister, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	if dbConfig.URL.IsDefined() {
		endpoint := dbConfig.URL.String()
		optFns = append(optFns, func(o *dynamodb.Options) {
			o.EndpointResolver = dynamodb.EndpointResolverFromURL(endpoint)
		})
	}
	return &dynamoDBPersister{
		client:  dynamodb.NewFromConfig(awsConfig, optFns...),
		table:   dbConfig.TableName,
		prefix:  prefix,
		loggers: loggers,
	}, nil
}

func (p *dynamoDBPersister) nodesNamespace() string   { return p.prefix + ":nodes" }
func (p *dynamoDBPersister) methodsNamespace() string { return p.prefix + ":methods" }

func (p *dynamoDBPersister) Load(ctx context.Context) (registry.State, error) {
	var b stateBuilder
	err := p.queryNamespace(ctx, p.nodesNamespace(), func(_ string, data []byte) {
		b.addNode(data)
	})
	if err != nil {
		return registry.State{}, err
	}
	err = p.queryNamespace(ctx, p.methodsNamespace(), func(key string, data []byte) {
		b.addMethod(key, data)
	})
	if err != nil {
		return registry.State{}, err
	}
	logSkipped(p.loggers, "DynamoDB", &b)
	return b.state, nil
}

func (p *dynamoDBPersister) PutNode(ctx context.Context, node registry.Node) error {
	return p.putItem(ctx, p.nodesNamespace(), node.Address, encodeNode(node))
}

func (p *dynamoDBPersister) DeleteNode(ctx context.Context, address string) error {
	_, err := p.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(p.table),
		Key:       itemKey(p.nodesNamespace(), address),
	})
	return err
}

func (p *dynamoDBPersister) PutMethod(ctx context.Context, method string, addresses []string) error {
	return p.putItem(ctx, p.methodsNamespace(), method, encodeAddresses(addresses))
}

func (p *dynamoDBPersister) Close() error {
	return nil
}

func (p *dynamoDBPersister) putItem(ctx context.Context, namespace, key string, data []byte) error {
	item := itemKey(namespace, key)
	item[dynamoDBDataAttr] = attrValueOfString(string(data))
	_, err := p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item:      item,
	})
	return err
}

func (p *dynamoDBPersister) queryNamespace(ctx context.Context, namespace string, fn func(key string, data []byte)) error {
	paginator := dynamodb.NewQueryPaginator(p.client, &dynamodb.QueryInput{
		TableName:                aws.String(p.table),
		ConsistentRead:           aws.Bool(true),
		KeyConditionExpression:   aws.String("#0 = :0"),
		ExpressionAttributeNames: map[string]string{"#0": tablePartitionKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":0": attrValueOfString(namespace),
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			key, _ := item[tableSortKey].(*types.AttributeValueMemberS)
			data, _ := item[dynamoDBDataAttr].(*types.AttributeValueMemberS)
			if key == nil || data == nil {
				continue
			}
			fn(key.Value, []byte(data.Value))
		}
	}
	return nil
}

func itemKey(namespace, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		tablePartitionKey: attrValueOfString(namespace),
		tableSortKey:      attrValueOfString(key),
	}
}

func attrValueOfString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}
