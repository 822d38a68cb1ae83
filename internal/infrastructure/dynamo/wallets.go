package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/xbrain-api/internal/domain"
)

// WalletRepo provides typed DynamoDB operations for the points wallets
// table. Wallets are keyed by user_id — the 1:1 relation is the key schema.
// Wallet creation happens inside UserRepo.CreateWithWallet, never here.
type WalletRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewWalletRepo(client *dynamodb.Client, tableName string) *WalletRepo {
	return &WalletRepo{client: client, tableName: tableName}
}

func (r *WalletRepo) GetByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("wallet not found: %w", domain.ErrNotFound)
	}
	var w domain.Wallet
	if err := attributevalue.UnmarshalMap(out.Item, &w); err != nil {
		return nil, err
	}
	return &w, nil
}
