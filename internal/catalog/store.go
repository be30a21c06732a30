package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws"
)

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// Create persists a brand new product. The id, version and timestamps are
// assigned here; derived fields are recomputed before the write.
func (s *Store) Create(ctx context.Context, p *Product) error {
	now := s.nowFunc()
	p.ProductID = s.newID()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusPending
	}
	p.RecomputeDerived()
	if err := p.ValidateStock(); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(product_id)"),
	})
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// Save overwrites an existing product document. p.Version must hold the
// version observed at read time; the write is guarded by it and bumps it,
// so a concurrent writer surfaces as ErrVersionConflict instead of a lost
// update. Derived fields are recomputed unconditionally.
func (s *Store) Save(ctx context.Context, p *Product) error {
	p.RecomputeDerived()
	if err := p.ValidateStock(); err != nil {
		return err
	}

	expected := p.Version
	p.Version = expected + 1
	p.UpdatedAt = s.nowFunc()

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		p.Version = expected
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("version = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expected)},
		},
	})
	if err != nil {
		p.Version = expected
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrVersionConflict
		}
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// Get fetches a product by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// HardDelete removes a product document entirely. Admin-only surface; the
// regular deletion path is a soft delete via Save with IsAvailable=false.
func (s *Store) HardDelete(ctx context.Context, productID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// Sort options for listings.
const (
	SortPriceAsc    = "price-asc"
	SortPriceDesc   = "price-desc"
	SortNewest      = "newest"
	SortBestSelling = "best-selling"
)

// ListFilter narrows and orders a product listing. Zero values mean "no
// constraint". Sorting and pagination run client-side: a table scan has no
// server-side ordering, so they cannot be pushed down anyway.
type ListFilter struct {
	CategoryID string
	SellerID   string
	Search     string
	MinPrice   float64
	MaxPrice   float64
	FlashSale  bool
	Featured   bool
	Sort       string
	Limit      int
	Page       int
}

// List returns publicly visible products (approved and available) matching
// the filter.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Product, error) {
	products, err := s.scan(ctx,
		"is_available = :avail AND #st = :status",
		map[string]string{"#st": "status"},
		map[string]types.AttributeValue{
			":avail":  &types.AttributeValueMemberBOOL{Value: true},
			":status": &types.AttributeValueMemberS{Value: StatusApproved},
		})
	if err != nil {
		return nil, err
	}
	return applyFilter(products, f), nil
}

// ListModeration returns products for the admin console, optionally filtered
// by moderation status. Unavailable products are included.
func (s *Store) ListModeration(ctx context.Context, status string) ([]Product, error) {
	if status == "" {
		products, err := s.scan(ctx, "", nil, nil)
		if err != nil {
			return nil, err
		}
		sortProducts(products, SortNewest)
		return products, nil
	}
	products, err := s.scan(ctx,
		"#st = :status",
		map[string]string{"#st": "status"},
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
		})
	if err != nil {
		return nil, err
	}
	sortProducts(products, SortNewest)
	return products, nil
}

// ListBySeller returns every product owned by a seller, regardless of
// availability or moderation status (the seller's own back-office view).
func (s *Store) ListBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	products, err := s.scan(ctx,
		"seller_id = :seller",
		nil,
		map[string]types.AttributeValue{
			":seller": &types.AttributeValueMemberS{Value: sellerID},
		})
	if err != nil {
		return nil, err
	}
	sortProducts(products, SortNewest)
	return products, nil
}

// scan pages through the table applying an optional filter expression.
func (s *Store) scan(ctx context.Context, filterExpr string, names map[string]string, values map[string]types.AttributeValue) ([]Product, error) {
	var products []Product
	var startKey map[string]types.AttributeValue
	for {
		input := &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		}
		if filterExpr != "" {
			input.FilterExpression = &filterExpr
			input.ExpressionAttributeValues = values
			if len(names) > 0 {
				input.ExpressionAttributeNames = names
			}
		}
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		var page []Product
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		products = append(products, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return products, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func applyFilter(products []Product, f ListFilter) []Product {
	filtered := products[:0:0]
	for _, p := range products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.SellerID != "" && p.SellerID != f.SellerID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.MinPrice > 0 && p.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		if f.FlashSale && !p.IsFlashSale {
			continue
		}
		if f.Featured && !p.IsFeatured {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, f.Sort)

	if f.Limit <= 0 {
		return filtered
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.Limit
	if start >= len(filtered) {
		return nil
	}
	end := start + f.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

func sortProducts(products []Product, order string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case SortBestSelling:
		sort.SliceStable(products, func(i, j int) bool { return products[i].SoldCount > products[j].SoldCount })
	default:
		sort.SliceStable(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	}
}

func awsString(s string) *string { return &s }
