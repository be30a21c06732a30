package messaging

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

// ErrDuplicateMessage means a message with the same id was already written;
// the automated-message path treats this as "already delivered".
var ErrDuplicateMessage = errors.New("message already exists")

// Store encapsulates operations on the messages table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new messages Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Put writes a message. The write is guarded by the message id, so callers
// using a deterministic id (the automated order acknowledgements) get
// at-most-once delivery across SQS redeliveries.
func (s *Store) Put(ctx context.Context, m Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.nowFunc()
	}
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(message_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("put message: %w", err)
	}
	return nil
}

// AutomatedOrderMessage builds the acknowledgement one seller sends the buyer
// when an order is placed. The message id is derived from (order, seller) so
// the same acknowledgement is never written twice.
func AutomatedOrderMessage(orderID, orderNumber, sellerID, buyerID string) Message {
	return Message{
		MessageID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte("order-ack:"+orderID+":"+sellerID)).String(),
		ConversationID: ConversationID(buyerID, sellerID),
		SenderID:       sellerID,
		ReceiverID:     buyerID,
		Body:           fmt.Sprintf("Thank you for your order! Your order (%s) has been placed and is being processed.", orderNumber),
		IsAutomated:    true,
	}
}

// ListConversation returns the messages between two users, oldest first.
func (s *Store) ListConversation(ctx context.Context, userA, userB string) ([]Message, error) {
	convID := ConversationID(userA, userB)
	filterExpr := "conversation_id = :c"
	var messages []Message
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:        &s.tableName,
			FilterExpression: &filterExpr,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberS{Value: convID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan messages: %w", err)
		}
		var page []Message
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		messages = append(messages, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func awsString(s string) *string { return &s }
