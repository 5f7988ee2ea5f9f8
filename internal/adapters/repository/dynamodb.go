package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/okian/tweetcast/pkg/metrics"
)

// Attribute names used for every table: a string partition key and the
// JSON-encoded record.
const (
	dynamoKeyAttr = "pk"
	dynamoDocAttr = "doc"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoKV.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoKV implements KV on DynamoDB, one table per record kind.
type DynamoKV struct {
	client      DynamoAPI
	tablePrefix string
}

// NewDynamoKV wraps client. Table names are tablePrefix + table.
func NewDynamoKV(client DynamoAPI, tablePrefix string) *DynamoKV {
	return &DynamoKV{client: client, tablePrefix: tablePrefix}
}

func (d *DynamoKV) tableName(table string) *string {
	return aws.String(d.tablePrefix + table)
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKeyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

func (d *DynamoKV) Get(ctx context.Context, table, key string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("dynamodb", "get", msSince(start)) }()

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      d.tableName(table),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("dynamodb get", err)
	}
	if len(out.Item) == 0 {
		return nil, notFound(table, key)
	}
	doc, ok := out.Item[dynamoDocAttr].(*types.AttributeValueMemberB)
	if !ok {
		return nil, corrupt(table, key, "missing "+dynamoDocAttr+" attribute")
	}
	return doc.Value, nil
}

func (d *DynamoKV) putInput(table, key string, value []byte) *dynamodb.PutItemInput {
	return &dynamodb.PutItemInput{
		TableName: d.tableName(table),
		Item: map[string]types.AttributeValue{
			dynamoKeyAttr: &types.AttributeValueMemberS{Value: key},
			dynamoDocAttr: &types.AttributeValueMemberB{Value: value},
		},
	}
}

func (d *DynamoKV) Put(ctx context.Context, table, key string, value []byte) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("dynamodb", "put", msSince(start)) }()

	if _, err := d.client.PutItem(ctx, d.putInput(table, key, value)); err != nil {
		return unavailable("dynamodb put", err)
	}
	return nil
}

// PutIfAbsent uses a conditional put, so concurrent writers across
// processes agree on a single winner.
func (d *DynamoKV) PutIfAbsent(ctx context.Context, table, key string, value []byte) (bool, error) {
	in := d.putInput(table, key, value)
	in.ConditionExpression = aws.String("attribute_not_exists(" + dynamoKeyAttr + ")")

	_, err := d.client.PutItem(ctx, in)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, unavailable("dynamodb put", err)
	}
	return true, nil
}

func (d *DynamoKV) Delete(ctx context.Context, table, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: d.tableName(table),
		Key:       dynamoKey(key),
	})
	if err != nil {
		return unavailable("dynamodb delete", err)
	}
	return nil
}

// Scan maps the continuation token onto ExclusiveStartKey. A page may be
// empty while Next is set; callers keep draining until Next is empty.
func (d *DynamoKV) Scan(ctx context.Context, table, cursor string, limit int) (Page, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("dynamodb", "scan", msSince(start)) }()

	if limit <= 0 {
		limit = defaultPageSize
	}
	in := &dynamodb.ScanInput{
		TableName: d.tableName(table),
		Limit:     aws.Int32(int32(limit)), //nolint:gosec // page sizes are small
	}
	if cursor != "" {
		in.ExclusiveStartKey = dynamoKey(cursor)
	}

	out, err := d.client.Scan(ctx, in)
	if err != nil {
		return Page{}, unavailable("dynamodb scan", err)
	}

	page := Page{Items: make([]Item, 0, len(out.Items))}
	for _, item := range out.Items {
		key, ok := item[dynamoKeyAttr].(*types.AttributeValueMemberS)
		if !ok {
			page.Items = append(page.Items, Item{Err: corrupt(table, "", "missing "+dynamoKeyAttr+" attribute")})
			continue
		}
		doc, ok := item[dynamoDocAttr].(*types.AttributeValueMemberB)
		if !ok {
			page.Items = append(page.Items, Item{Key: key.Value, Err: corrupt(table, key.Value, "missing "+dynamoDocAttr+" attribute")})
			continue
		}
		page.Items = append(page.Items, Item{Key: key.Value, Value: doc.Value})
	}
	if next, ok := out.LastEvaluatedKey[dynamoKeyAttr].(*types.AttributeValueMemberS); ok {
		page.Next = next.Value
	}
	return page, nil
}

// Close is a no-op; the AWS client holds no connections that need closing.
func (d *DynamoKV) Close() error { return nil }
