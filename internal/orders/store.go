package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
)

// ErrIdempotencyConflict means the creation transaction was cancelled because
// the idempotency key already exists; the caller should return the recorded
// outcome instead of retrying.
var ErrIdempotencyConflict = errors.New("idempotency key already exists")

// errOrderIDCollision is internal: a fresh order id/number collided; creation
// is retried with new identifiers.
var errOrderIDCollision = errors.New("order id collision")

// Store encapsulates operations on the orders table. Order creation also
// writes the reserved product documents, so the store knows both table names.
type Store struct {
	client           aws.DynamoDBAPI
	tableName        string
	productsTable    string
	idempotencyTable string
	nowFunc          func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName, productsTable, idempotencyTable string) *Store {
	return &Store{
		client:           client,
		tableName:        tableName,
		productsTable:    productsTable,
		idempotencyTable: idempotencyTable,
		nowFunc:          time.Now,
	}
}

// ProductWrite is one product document to persist inside the creation
// transaction. Product carries the already-mutated snapshot (stock
// decremented, derived fields recomputed); ExpectedVersion is the version
// observed when the snapshot was read.
type ProductWrite struct {
	Product         *catalog.Product
	ExpectedVersion int64
}

// CreateTransaction atomically persists the order together with every
// reserved product document, and optionally an idempotency record. Each
// product put is guarded by its observed version and the order put by
// attribute_not_exists(order_id), so either every stock decrement and the
// order land together or nothing does.
//
// Returns ErrIdempotencyConflict when the idempotency guard fired,
// catalog.ErrVersionConflict when a concurrent writer touched a product
// (retry from validation), and errOrderIDCollision on an id clash.
func (s *Store) CreateTransaction(ctx context.Context, order *Order, writes []ProductWrite, idempItem interface{}) error {
	var transactItems []types.TransactWriteItem
	idempIndex := -1

	if idempItem != nil {
		idempMap, err := attributevalue.MarshalMap(idempItem)
		if err != nil {
			return fmt.Errorf("marshal idempotency item: %w", err)
		}
		idempIndex = len(transactItems)
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           &s.idempotencyTable,
				Item:                idempMap,
				ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
			},
		})
	}

	productStart := len(transactItems)
	for _, w := range writes {
		w.Product.Version = w.ExpectedVersion + 1
		w.Product.UpdatedAt = s.nowFunc()
		item, err := attributevalue.MarshalMap(w.Product)
		if err != nil {
			return fmt.Errorf("marshal product %s: %w", w.Product.ProductID, err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           &s.productsTable,
				Item:                item,
				ConditionExpression: awsString("version = :expected"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", w.ExpectedVersion)},
				},
			},
		})
	}

	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	orderIndex := len(transactItems)
	transactItems = append(transactItems, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           &s.tableName,
			Item:                orderMap,
			ConditionExpression: awsString("attribute_not_exists(order_id)"),
		},
	})

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for i, reason := range tce.CancellationReasons {
				if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
					continue
				}
				switch {
				case i == idempIndex:
					return ErrIdempotencyConflict
				case i == orderIndex:
					return errOrderIDCollision
				case i >= productStart && i < orderIndex:
					return catalog.ErrVersionConflict
				}
			}
			return fmt.Errorf("transaction cancelled: %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus conditionally moves the order from expectedStatus to
// newStatus, appending one status-history entry. When newStatus is
// "delivered" the delivery timestamp is stamped. Returns the updated order,
// or ErrStatusConflict if the order's status was no longer expectedStatus.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus, note string) (*Order, error) {
	now := s.nowFunc()
	entry, err := attributevalue.MarshalMap(StatusEntry{
		Status:    newStatus,
		UpdatedAt: now,
		Note:      note,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status entry: %w", err)
	}

	updateExpr := "SET #s = :new, updated_at = :ua, status_history = list_append(status_history, :entry)"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		":entry":    &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: entry}}},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
	}
	if newStatus == StatusDelivered {
		updateExpr += ", delivered_at = :da"
		values[":da"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)}
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	var o Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// MarkItemReviewed flags the line at itemIndex as reviewed.
func (s *Store) MarkItemReviewed(ctx context.Context, orderID string, itemIndex int) error {
	updateExpr := fmt.Sprintf("SET items[%d].has_review = :t, updated_at = :ua", itemIndex)
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: &updateExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":ua": &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	})
	if err != nil {
		return fmt.Errorf("mark item reviewed: %w", err)
	}
	return nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (s *Store) ListByBuyer(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.scan(ctx,
		"user_id = :u",
		nil,
		map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		})
	if err != nil {
		return nil, err
	}
	sortNewest(orders)
	return orders, nil
}

// ListBySeller returns orders containing at least one of the seller's lines,
// optionally filtered by status, newest first. Each order is reduced to the
// seller's view: only their lines, total recomputed from those lines.
func (s *Store) ListBySeller(ctx context.Context, sellerID, status string) ([]Order, error) {
	filterExpr := "contains(seller_ids, :seller)"
	names := map[string]string(nil)
	values := map[string]types.AttributeValue{
		":seller": &types.AttributeValueMemberS{Value: sellerID},
	}
	if status != "" {
		filterExpr += " AND #s = :status"
		names = map[string]string{"#s": "status"}
		values[":status"] = &types.AttributeValueMemberS{Value: status}
	}

	orders, err := s.scan(ctx, filterExpr, names, values)
	if err != nil {
		return nil, err
	}
	views := make([]Order, 0, len(orders))
	for i := range orders {
		views = append(views, orders[i].SellerView(sellerID))
	}
	sortNewest(views)
	return views, nil
}

func (s *Store) scan(ctx context.Context, filterExpr string, names map[string]string, values map[string]types.AttributeValue) ([]Order, error) {
	var orders []Order
	var startKey map[string]types.AttributeValue
	for {
		input := &dyn.ScanInput{
			TableName:                 &s.tableName,
			FilterExpression:          &filterExpr,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		}
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var page []Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		orders = append(orders, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return orders, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func sortNewest(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func awsString(s string) *string { return &s }
