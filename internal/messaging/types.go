package messaging

import (
	"sort"
	"strings"
	"time"
)

// Message is one entry of a buyer/seller conversation, stored in the
// messages table.
type Message struct {
	MessageID      string    `dynamodbav:"message_id" json:"messageId"` // PK
	ConversationID string    `dynamodbav:"conversation_id" json:"conversationId"`
	SenderID       string    `dynamodbav:"sender_id" json:"senderId"`
	ReceiverID     string    `dynamodbav:"receiver_id" json:"receiverId"`
	Body           string    `dynamodbav:"body" json:"body"`
	IsRead         bool      `dynamodbav:"is_read" json:"isRead"`
	IsAutomated    bool      `dynamodbav:"is_automated" json:"isAutomated"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// ConversationID derives the canonical conversation key for two users: the
// ids sorted and joined with an underscore, so either participant computes
// the same key.
func ConversationID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// OrderPlacedEvent is the payload published to the notifications queue when
// an order is created. The worker fans it out into one automated message per
// distinct seller.
type OrderPlacedEvent struct {
	OrderID     string   `json:"order_id"`
	OrderNumber string   `json:"order_number"`
	BuyerID     string   `json:"buyer_id"`
	SellerIDs   []string `json:"seller_ids"`
}
