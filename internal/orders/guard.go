package orders

import "github.com/craftmarket/go-artisan-marketplace/internal/identity"

// ValidStatus reports whether s is one of the five order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave s.
func Terminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AuthorizeTransition decides whether actor may move the order to target.
//
// Admins and sellers with a line in the order may set any valid status. The
// buyer may only confirm receipt: out for delivery -> delivered. Terminal
// statuses accept no further transitions from anyone.
func AuthorizeTransition(actor identity.Actor, o *Order, target string) error {
	if !ValidStatus(target) {
		return ErrInvalidStatus
	}
	if Terminal(o.Status) {
		return ErrInvalidStatus
	}

	switch {
	case actor.IsAdmin():
		return nil
	case o.HasSellerLine(actor.ID):
		return nil
	case actor.ID == o.UserID && target == StatusDelivered && o.Status == StatusOutForDelivery:
		return nil
	}
	return ErrForbidden
}
