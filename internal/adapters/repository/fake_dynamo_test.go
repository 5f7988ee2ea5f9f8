package repository_test

import (
	"context"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo keeps items in memory, honours attribute_not_exists conditions
// and pages scans with LastEvaluatedKey.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string][]byte
	// bare holds "table/key" entries stored without a doc attribute.
	bare map[string]bool
	err  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string]map[string][]byte), bare: make(map[string]bool)}
}

// putBare stores an item that has only a partition key, like a record
// written by another tool.
func (f *fakeDynamo) putBare(table, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables[table] == nil {
		f.tables[table] = make(map[string][]byte)
	}
	f.tables[table][key] = nil
	f.bare[table+"/"+key] = true
}

func (f *fakeDynamo) item(table, key string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: key}}
	if !f.bare[table+"/"+key] {
		item["doc"] = &types.AttributeValueMemberB{Value: f.tables[table][key]}
	}
	return item
}

func pk(item map[string]types.AttributeValue) string {
	return item["pk"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name, key := aws.ToString(in.TableName), pk(in.Key)
	if _, ok := f.tables[name][key]; !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: f.item(name, key)}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name := aws.ToString(in.TableName)
	if f.tables[name] == nil {
		f.tables[name] = make(map[string][]byte)
	}
	key := pk(in.Item)
	if in.ConditionExpression != nil {
		if _, exists := f.tables[name][key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	f.tables[name][key] = in.Item["doc"].(*types.AttributeValueMemberB).Value
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.tables[aws.ToString(in.TableName)], pk(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name := aws.ToString(in.TableName)
	table := f.tables[name]
	start := ""
	if in.ExclusiveStartKey != nil {
		start = pk(in.ExclusiveStartKey)
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		if start == "" || k > start {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	limit := int(aws.ToInt32(in.Limit))
	out := &dynamodb.ScanOutput{}
	for i, k := range keys {
		if limit > 0 && i == limit {
			out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: keys[i-1]}}
			break
		}
		out.Items = append(out.Items, f.item(name, k))
	}
	return out, nil
}
