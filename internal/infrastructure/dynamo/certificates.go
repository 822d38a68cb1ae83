package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xbrain-api/internal/domain"
)

// CertificateRepo provides typed DynamoDB operations for the certificates table.
type CertificateRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCertificateRepo(client *dynamodb.Client, tableName string) *CertificateRepo {
	return &CertificateRepo{client: client, tableName: tableName}
}

func (r *CertificateRepo) Put(ctx context.Context, c *domain.Certificate) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CertificateRepo) ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-index"),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, err
	}
	var certs []domain.Certificate
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}
