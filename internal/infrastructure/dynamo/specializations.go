package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xbrain-api/internal/domain"
)

// SpecializationRepo provides typed DynamoDB operations for the
// specializations reference table.
type SpecializationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSpecializationRepo(client *dynamodb.Client, tableName string) *SpecializationRepo {
	return &SpecializationRepo{client: client, tableName: tableName}
}

// Scan returns the full catalog. The table is small reference data, so a
// scan is fine here.
func (r *SpecializationRepo) Scan(ctx context.Context) ([]domain.Specialization, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var specs []domain.Specialization
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// BatchGet returns the specializations that exist among the given ids.
// Missing ids are simply absent from the result; the caller diffs.
func (r *SpecializationRepo) BatchGet(ctx context.Context, ids []string) ([]domain.Specialization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, strKey("specialization_id", id))
	}
	out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			r.tableName: {Keys: keys},
		},
	})
	if err != nil {
		return nil, err
	}
	var specs []domain.Specialization
	if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.tableName], &specs); err != nil {
		return nil, err
	}
	return specs, nil
}
