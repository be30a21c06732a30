package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws/awstest"
	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
	"github.com/craftmarket/go-artisan-marketplace/internal/orders"
)

var (
	reviewBuyer = identity.Actor{ID: "buyer-1", Role: identity.RoleClient}
	reviewAdmin = identity.Actor{ID: "root", Role: identity.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *awstest.DynamoDB) {
	t.Helper()
	fake := awstest.NewDynamoDB().
		AddTable("reviews", "review_id").
		AddTable("orders", "order_id").
		AddTable("products", "product_id").
		AddTable("idempotency", "idempotency_key")

	store := NewStore(fake, "reviews")
	orderStore := orders.NewStore(fake, "orders", "products", "idempotency")
	productStore := catalog.NewStore(fake, "products")
	return NewService(store, orderStore, productStore), fake
}

func seed(t *testing.T, fake *awstest.DynamoDB, table string, doc interface{}) {
	t.Helper()
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		t.Fatalf("marshal %s: %v", table, err)
	}
	fake.Seed(table, item)
}

func deliveredOrder() *orders.Order {
	return &orders.Order{
		OrderID: "o1",
		UserID:  "buyer-1",
		Status:  orders.StatusDelivered,
		Items: []orders.Item{
			{ProductID: "p1", SellerID: "seller-1", Name: "Woven Tote", Quantity: 1, Price: 30},
			{ProductID: "p2", SellerID: "seller-1", Name: "Clay Vase", Quantity: 1, Price: 20},
		},
		StatusHistory: []orders.StatusEntry{{Status: orders.StatusDelivered, UpdatedAt: time.Now()}},
		CreatedAt:     time.Now(),
	}
}

func reviewedProduct() *catalog.Product {
	return &catalog.Product{
		ProductID:   "p1",
		SellerID:    "seller-1",
		Name:        "Woven Tote",
		Price:       30,
		TotalStock:  3,
		IsAvailable: true,
		Status:      catalog.StatusApproved,
		Version:     1,
	}
}

func TestCreateReviewHappyPath(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	seed(t, fake, "orders", deliveredOrder())
	seed(t, fake, "products", reviewedProduct())

	review, err := svc.Create(ctx, reviewBuyer, CreateInput{
		ProductID: "p1",
		OrderID:   "o1",
		Rating:    4,
		Comment:   "Sturdy and beautiful",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if review.ReviewID == "" || !review.IsVerifiedPurchase {
		t.Fatalf("unexpected review: %+v", review)
	}

	// the purchased line is flagged
	order, err := orders.NewStore(fake, "orders", "products", "idempotency").Get(ctx, "o1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !order.Items[0].HasReview || order.Items[1].HasReview {
		t.Fatalf("expected only the reviewed line flagged: %+v", order.Items)
	}

	// the product aggregate is refreshed
	product, err := catalog.NewStore(fake, "products").Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Rating.Average != 4 || product.Rating.Count != 1 {
		t.Fatalf("unexpected rating aggregate: %+v", product.Rating)
	}
}

func TestCreateReviewRoundsAverage(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	seed(t, fake, "products", reviewedProduct())

	// two delivered orders by different buyers for the same product
	first := deliveredOrder()
	seed(t, fake, "orders", first)
	second := deliveredOrder()
	second.OrderID = "o2"
	second.UserID = "buyer-2"
	seed(t, fake, "orders", second)

	if _, err := svc.Create(ctx, reviewBuyer, CreateInput{ProductID: "p1", OrderID: "o1", Rating: 4, Comment: "ok"}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	other := identity.Actor{ID: "buyer-2", Role: identity.RoleClient}
	if _, err := svc.Create(ctx, other, CreateInput{ProductID: "p1", OrderID: "o2", Rating: 5, Comment: "great"}); err != nil {
		t.Fatalf("second review: %v", err)
	}

	product, err := catalog.NewStore(fake, "products").Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Rating.Average != 4.5 || product.Rating.Count != 2 {
		t.Fatalf("expected average 4.5 over 2 reviews, got %+v", product.Rating)
	}
}

func TestCreateReviewGuards(t *testing.T) {
	cases := []struct {
		name  string
		setup func(o *orders.Order)
		actor identity.Actor
		input CreateInput
		want  error
	}{
		{
			name:  "order not delivered",
			setup: func(o *orders.Order) { o.Status = orders.StatusProcessing },
			actor: reviewBuyer,
			input: CreateInput{ProductID: "p1", OrderID: "o1", Rating: 5, Comment: "x"},
			want:  ErrNotDelivered,
		},
		{
			name:  "not the buyer",
			setup: func(o *orders.Order) {},
			actor: identity.Actor{ID: "someone", Role: identity.RoleClient},
			input: CreateInput{ProductID: "p1", OrderID: "o1", Rating: 5, Comment: "x"},
			want:  ErrForbidden,
		},
		{
			name:  "product not in order",
			setup: func(o *orders.Order) {},
			actor: reviewBuyer,
			input: CreateInput{ProductID: "p9", OrderID: "o1", Rating: 5, Comment: "x"},
			want:  ErrNotInOrder,
		},
		{
			name:  "order missing",
			setup: func(o *orders.Order) {},
			actor: reviewBuyer,
			input: CreateInput{ProductID: "p1", OrderID: "ghost", Rating: 5, Comment: "x"},
			want:  orders.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, fake := newTestService(t)
			order := deliveredOrder()
			tc.setup(order)
			seed(t, fake, "orders", order)
			seed(t, fake, "products", reviewedProduct())

			_, err := svc.Create(context.Background(), tc.actor, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateReviewRejectsDuplicate(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	seed(t, fake, "orders", deliveredOrder())
	seed(t, fake, "products", reviewedProduct())

	in := CreateInput{ProductID: "p1", OrderID: "o1", Rating: 4, Comment: "nice"}
	if _, err := svc.Create(ctx, reviewBuyer, in); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := svc.Create(ctx, reviewBuyer, in); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestReplyAuthorization(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	seed(t, fake, "orders", deliveredOrder())
	seed(t, fake, "products", reviewedProduct())

	review, err := svc.Create(ctx, reviewBuyer, CreateInput{ProductID: "p1", OrderID: "o1", Rating: 4, Comment: "nice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	otherSeller := identity.Actor{ID: "seller-9", Role: identity.RoleSeller}
	if _, err := svc.Reply(ctx, otherSeller, review.ReviewID, "thanks"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	owner := identity.Actor{ID: "seller-1", Role: identity.RoleSeller}
	replied, err := svc.Reply(ctx, owner, review.ReviewID, "thank you!")
	if err != nil {
		t.Fatalf("owner reply: %v", err)
	}
	if replied.SellerReply == nil || replied.SellerReply.Comment != "thank you!" {
		t.Fatalf("reply not stored: %+v", replied)
	}

	// admins may moderate replies too
	if _, err := svc.Reply(ctx, reviewAdmin, review.ReviewID, "moderated"); err != nil {
		t.Fatalf("admin reply: %v", err)
	}

	if _, err := svc.Reply(ctx, owner, "missing-review", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUserAndProduct(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()
	seed(t, fake, "products", reviewedProduct())
	seed(t, fake, "orders", deliveredOrder())

	if _, err := svc.Create(ctx, reviewBuyer, CreateInput{ProductID: "p1", OrderID: "o1", Rating: 4, Comment: "a"}); err != nil {
		t.Fatalf("review p1: %v", err)
	}
	if _, err := svc.Create(ctx, reviewBuyer, CreateInput{ProductID: "p2", OrderID: "o1", Rating: 3, Comment: "b"}); err != nil {
		t.Fatalf("review p2: %v", err)
	}

	byProduct, err := svc.ListByProduct(ctx, "p1")
	if err != nil || len(byProduct) != 1 {
		t.Fatalf("by product: got %d err %v", len(byProduct), err)
	}
	byUser, err := svc.ListByUser(ctx, reviewBuyer)
	if err != nil || len(byUser) != 2 {
		t.Fatalf("by user: got %d err %v", len(byUser), err)
	}
}
