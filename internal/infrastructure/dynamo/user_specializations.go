package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xbrain-api/internal/domain"
)

// UserSpecializationRepo manages the user<->specialization join table.
// PK user_id, SK specialization_id: duplicate pairs are impossible at the
// storage level.
type UserSpecializationRepo struct {
	client    *dynamodb.Client
	tableName string
	userTable string
}

func NewUserSpecializationRepo(client *dynamodb.Client, tableName, userTable string) *UserSpecializationRepo {
	return &UserSpecializationRepo{client: client, tableName: tableName, userTable: userTable}
}

func (r *UserSpecializationRepo) ListByUser(ctx context.Context, userID string) ([]domain.UserSpecialization, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, err
	}
	var rows []domain.UserSpecialization
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceForUser swaps the user's join rows for the given specialization
// ids and stamps specialization_form_completed_at, all in one
// TransactWriteItems call so no reader ever observes the cleared
// intermediate state. completedAt is stamped even when ids is empty —
// clearing the form is itself a completion.
func (r *UserSpecializationRepo) ReplaceForUser(ctx context.Context, userID string, ids []string, completedAt time.Time) error {
	existing, err := r.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	var items []types.TransactWriteItem
	for _, row := range existing {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       compositeKey("user_id", userID, "specialization_id", row.SpecializationID),
		}})
	}
	for _, id := range ids {
		item, mErr := attributevalue.MarshalMap(domain.UserSpecialization{
			UserID:           userID,
			SpecializationID: id,
		})
		if mErr != nil {
			return fmt.Errorf("marshal join row: %w", mErr)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		}})
	}

	// A delete and a put for the same key cannot share one transaction, so
	// rows that survive the replace are rewritten via their delete being
	// skipped instead.
	items = dedupeTransactItems(items)

	stampValue, err := attributevalue.Marshal(completedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	items = append(items, types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.userTable),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String("SET #c = :c, #u = :c"),
		ExpressionAttributeNames:  map[string]string{"#c": domain.AttrSpecializationFormCompletedAt, "#u": domain.AttrUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": stampValue},
	}})

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

// dedupeTransactItems drops a Delete when a Put for the same join key is
// present in the same batch (DynamoDB rejects two operations on one key in
// a single transaction).
func dedupeTransactItems(items []types.TransactWriteItem) []types.TransactWriteItem {
	putKeys := make(map[string]bool)
	for _, it := range items {
		if it.Put != nil {
			putKeys[joinKeyOf(it.Put.Item)] = true
		}
	}
	out := items[:0]
	for _, it := range items {
		if it.Delete != nil && putKeys[joinKeyOf(it.Delete.Key)] {
			continue
		}
		out = append(out, it)
	}
	return out
}

func joinKeyOf(attrs map[string]types.AttributeValue) string {
	u, _ := attrs["user_id"].(*types.AttributeValueMemberS)
	s, _ := attrs["specialization_id"].(*types.AttributeValueMemberS)
	if u == nil || s == nil {
		return ""
	}
	return u.Value + "/" + s.Value
}
