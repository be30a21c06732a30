package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
)

// Store encapsulates operations on the reviews table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new reviews Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// reviewID is deterministic over the (order, product, user) triple, which
// combined with the existence guard on create enforces one review per
// purchase without a read-check race.
func reviewID(orderID, productID, userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("review:"+orderID+":"+productID+":"+userID)).String()
}

// Create persists a review. Returns ErrAlreadyReviewed when the triple was
// reviewed before.
func (s *Store) Create(ctx context.Context, r *Review) error {
	r.ReviewID = reviewID(r.OrderID, r.ProductID, r.UserID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.nowFunc()
	}
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(review_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("put review: %w", err)
	}
	return nil
}

// Get fetches a review by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*Review, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"review_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var r Review
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	return &r, nil
}

// SetSellerReply stores the seller's reply on a review.
func (s *Store) SetSellerReply(ctx context.Context, reviewID, comment string) error {
	reply, err := attributevalue.MarshalMap(SellerReply{
		Comment:   comment,
		RepliedAt: s.nowFunc(),
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"review_id": &types.AttributeValueMemberS{Value: reviewID},
		},
		UpdateExpression: awsString("SET seller_reply = :reply"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reply": &types.AttributeValueMemberM{Value: reply},
		},
		ConditionExpression: awsString("attribute_exists(review_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrNotFound
		}
		return fmt.Errorf("set seller reply: %w", err)
	}
	return nil
}

// ListByProduct returns a product's reviews, newest first.
func (s *Store) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	return s.list(ctx, "product_id = :v", productID)
}

// ListByUser returns a user's reviews, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Review, error) {
	return s.list(ctx, "user_id = :v", userID)
}

func (s *Store) list(ctx context.Context, filterExpr, value string) ([]Review, error) {
	var all []Review
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:        &s.tableName,
			FilterExpression: &filterExpr,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":v": &types.AttributeValueMemberS{Value: value},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan reviews: %w", err)
		}
		var page []Review
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal reviews: %w", err)
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func awsString(s string) *string { return &s }
