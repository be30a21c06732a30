package orders

import (
	"errors"
	"testing"

	"github.com/craftmarket/go-artisan-marketplace/internal/identity"
)

func guardOrder(status string) *Order {
	return &Order{
		OrderID: "o1",
		UserID:  "buyer-1",
		Status:  status,
		Items: []Item{
			{ProductID: "p1", SellerID: "seller-1", Quantity: 1, Price: 10},
		},
	}
}

func TestAuthorizeTransition(t *testing.T) {
	admin := identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	seller := identity.Actor{ID: "seller-1", Role: identity.RoleSeller}
	otherSeller := identity.Actor{ID: "seller-2", Role: identity.RoleSeller}
	buyer := identity.Actor{ID: "buyer-1", Role: identity.RoleClient}
	stranger := identity.Actor{ID: "someone", Role: identity.RoleClient}

	cases := []struct {
		name    string
		actor   identity.Actor
		current string
		target  string
		want    error
	}{
		{"admin any transition", admin, StatusPlaced, StatusCancelled, nil},
		{"seller with line advances", seller, StatusPlaced, StatusProcessing, nil},
		{"seller with line skips ahead", seller, StatusPlaced, StatusOutForDelivery, nil},
		{"seller without line", otherSeller, StatusPlaced, StatusProcessing, ErrForbidden},
		{"buyer confirms receipt", buyer, StatusOutForDelivery, StatusDelivered, nil},
		{"buyer cannot advance early", buyer, StatusProcessing, StatusDelivered, ErrForbidden},
		{"buyer cannot cancel", buyer, StatusPlaced, StatusCancelled, ErrForbidden},
		{"stranger blocked", stranger, StatusPlaced, StatusProcessing, ErrForbidden},
		{"unknown target status", admin, StatusPlaced, "shipped", ErrInvalidStatus},
		{"delivered is terminal", admin, StatusDelivered, StatusProcessing, ErrInvalidStatus},
		{"cancelled is terminal", admin, StatusCancelled, StatusPlaced, ErrInvalidStatus},
		{"terminal beats forbidden", stranger, StatusDelivered, StatusProcessing, ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeTransition(tc.actor, guardOrder(tc.current), tc.target)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []string{StatusPlaced, StatusProcessing, StatusOutForDelivery} {
		if Terminal(s) {
			t.Fatalf("%q should not be terminal", s)
		}
	}
	for _, s := range []string{StatusDelivered, StatusCancelled} {
		if !Terminal(s) {
			t.Fatalf("%q should be terminal", s)
		}
	}
}

func TestSellerView(t *testing.T) {
	o := &Order{
		TotalAmount: 50,
		Items: []Item{
			{ProductID: "p1", SellerID: "seller-1", Quantity: 2, Price: 10},
			{ProductID: "p2", SellerID: "seller-2", Quantity: 1, Price: 30},
		},
	}

	view := o.SellerView("seller-1")

	if len(view.Items) != 1 || view.Items[0].ProductID != "p1" {
		t.Fatalf("expected only seller-1 lines, got %+v", view.Items)
	}
	if view.TotalAmount != 20 {
		t.Fatalf("expected recomputed total 20, got %v", view.TotalAmount)
	}
	if len(o.Items) != 2 {
		t.Fatalf("view must not mutate the source order")
	}
}
