package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/gin-gonic/gin"

	"github.com/craftmarket/go-artisan-marketplace/internal/aws/awstest"
	"github.com/craftmarket/go-artisan-marketplace/internal/catalog"
	"github.com/craftmarket/go-artisan-marketplace/internal/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*gin.Engine, *awstest.DynamoDB) {
	t.Helper()
	fake := awstest.NewDynamoDB().
		AddTable("products", "product_id").
		AddTable("orders", "order_id").
		AddTable("reviews", "review_id").
		AddTable("messages", "message_id").
		AddTable("idempotency", "idempotency_key")

	cfg := &config.Config{
		ProductsTable:    "products",
		OrdersTable:      "orders",
		ReviewsTable:     "reviews",
		MessagesTable:    "messages",
		IdempotencyTable: "idempotency",
		IdempotencyTTL:   48 * time.Hour,
	}
	return NewRouter(Deps{DynamoDB: fake, Config: cfg}), fake
}

func seedApprovedProduct(t *testing.T, fake *awstest.DynamoDB, id string, stock int) {
	t.Helper()
	p := catalog.Product{
		ProductID:   id,
		SellerID:    "seller-1",
		Name:        "Handwoven Basket",
		Description: "Rattan, natural dye",
		Price:       25,
		TotalStock:  stock,
		IsAvailable: true,
		Status:      catalog.StatusApproved,
		Version:     1,
		CreatedAt:   time.Now(),
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		t.Fatalf("marshal product: %v", err)
	}
	fake.Seed("products", item)
}

type header map[string]string

func asBuyer() header {
	return header{"X-User-Id": "buyer-1", "X-User-Role": "client"}
}

func asSeller() header {
	return header{"X-User-Id": "seller-1", "X-User-Role": "seller"}
}

func asAdmin() header {
	return header{"X-User-Id": "root", "X-User-Role": "admin"}
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers header) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func orderPayload(qty int) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"product": "p1", "quantity": qty, "price": 25},
		},
		"paymentMethod": "cod",
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAuthGuards(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 5)

	// no identity headers
	if w := do(t, r, http.MethodPost, "/orders", orderPayload(1), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	// unknown role
	bad := header{"X-User-Id": "u1", "X-User-Role": "superuser"}
	if w := do(t, r, http.MethodPost, "/orders", orderPayload(1), bad); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown role, got %d", w.Code)
	}
	// wrong role on a client route
	if w := do(t, r, http.MethodPost, "/orders", orderPayload(1), asSeller()); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	// wrong role on a seller route
	if w := do(t, r, http.MethodGet, "/seller/orders", nil, asBuyer()); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	// non-admin on admin surface
	if w := do(t, r, http.MethodGet, "/admin/products", nil, asSeller()); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 5)

	w := do(t, r, http.MethodPost, "/orders", orderPayload(2), asBuyer())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	order := body["order"].(map[string]interface{})
	orderID := order["orderId"].(string)
	if orderID == "" || order["totalAmount"].(float64) != 50 {
		t.Fatalf("unexpected order: %v", order)
	}
	if loc := w.Header().Get("Location"); loc != "/orders/"+orderID {
		t.Fatalf("unexpected location %q", loc)
	}

	// stock was decremented with the order
	var p catalog.Product
	if err := attributevalue.UnmarshalMap(fake.Item("products", "p1"), &p); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	if p.TotalStock != 3 {
		t.Fatalf("expected stock 3, got %d", p.TotalStock)
	}

	// buyer sees it, the seller of the line sees it, a stranger does not
	if w := do(t, r, http.MethodGet, "/orders/"+orderID, nil, asBuyer()); w.Code != http.StatusOK {
		t.Fatalf("buyer get: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/orders/"+orderID, nil, asSeller()); w.Code != http.StatusOK {
		t.Fatalf("seller get: %d", w.Code)
	}
	stranger := header{"X-User-Id": "buyer-2", "X-User-Role": "client"}
	if w := do(t, r, http.MethodGet, "/orders/"+orderID, nil, stranger); w.Code != http.StatusForbidden {
		t.Fatalf("stranger get: %d", w.Code)
	}

	// listings
	if w := do(t, r, http.MethodGet, "/orders", nil, asBuyer()); w.Code != http.StatusOK {
		t.Fatalf("buyer listing: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/seller/orders", nil, asSeller())
	if w.Code != http.StatusOK {
		t.Fatalf("seller listing: %d", w.Code)
	}
	sellerOrders := decode(t, w)["orders"].([]interface{})
	if len(sellerOrders) != 1 {
		t.Fatalf("expected 1 seller order, got %d", len(sellerOrders))
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 2)

	// empty cart is a domain rejection, not a binding failure
	w := do(t, r, http.MethodPost, "/orders", map[string]interface{}{"items": []interface{}{}}, asBuyer())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decode(t, w)["error"] != "no_items_in_order" {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}

	// oversell
	w = do(t, r, http.MethodPost, "/orders", orderPayload(3), asBuyer())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decode(t, w)["error"] != "invalid_request" {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}

	// malformed quantity fails binding validation
	bad := map[string]interface{}{
		"items": []map[string]interface{}{{"product": "p1", "quantity": 0, "price": 25}},
	}
	w = do(t, r, http.MethodPost, "/orders", bad, asBuyer())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPlaceOrderIdempotencyReplay(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 5)

	headers := asBuyer()
	headers["Idempotency-Key"] = "key-1"

	first := do(t, r, http.MethodPost, "/orders", orderPayload(1), headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first attempt: %d %s", first.Code, first.Body.String())
	}
	firstOrder := decode(t, first)["order"].(map[string]interface{})

	second := do(t, r, http.MethodPost, "/orders", orderPayload(1), headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay should answer with the recorded 201, got %d: %s", second.Code, second.Body.String())
	}
	secondOrder := decode(t, second)["order"].(map[string]interface{})
	if firstOrder["orderId"] != secondOrder["orderId"] {
		t.Fatalf("replay must return the original order")
	}

	// only one order landed, stock decremented once
	if fake.Len("orders") != 1 {
		t.Fatalf("expected a single order, got %d", fake.Len("orders"))
	}
	var p catalog.Product
	if err := attributevalue.UnmarshalMap(fake.Item("products", "p1"), &p); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	if p.TotalStock != 4 {
		t.Fatalf("expected stock 4, got %d", p.TotalStock)
	}
}

func TestOrderStatusTransitionsOverHTTP(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 5)

	w := do(t, r, http.MethodPost, "/orders", orderPayload(1), asBuyer())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	orderID := decode(t, w)["order"].(map[string]interface{})["orderId"].(string)
	statusPath := "/orders/" + orderID + "/status"

	// buyer cannot advance a freshly placed order
	w = do(t, r, http.MethodPut, statusPath, map[string]string{"status": "processing"}, asBuyer())
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// the seller walks it to the door
	for _, status := range []string{"processing", "out for delivery"} {
		w = do(t, r, http.MethodPut, statusPath, map[string]string{"status": status}, asSeller())
		if w.Code != http.StatusOK {
			t.Fatalf("seller -> %q: %d %s", status, w.Code, w.Body.String())
		}
	}

	// buyer confirms receipt
	w = do(t, r, http.MethodPut, statusPath, map[string]string{"status": "delivered"}, asBuyer())
	if w.Code != http.StatusOK {
		t.Fatalf("buyer confirmation: %d %s", w.Code, w.Body.String())
	}

	// delivered is terminal
	w = do(t, r, http.MethodPut, statusPath, map[string]string{"status": "processing"}, asAdmin())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on terminal transition, got %d", w.Code)
	}

	// bogus status
	w = do(t, r, http.MethodPut, statusPath, map[string]string{"status": "teleported"}, asAdmin())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown status, got %d", w.Code)
	}
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := map[string]interface{}{
		"name":        "Abaca Rug",
		"description": "Handwoven abaca fiber rug",
		"price":       120,
		"sizeStock":   []map[string]interface{}{{"size": "M", "quantity": 2}},
	}
	w := do(t, r, http.MethodPost, "/products", payload, asSeller())
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", w.Code, w.Body.String())
	}
	product := decode(t, w)["product"].(map[string]interface{})
	id := product["productId"].(string)
	if product["status"] != catalog.StatusPending {
		t.Fatalf("new product must await moderation, got %v", product["status"])
	}

	// pending products are not on the public shelf
	w = do(t, r, http.MethodGet, "/products", nil, nil)
	if got := decode(t, w)["products"]; got != nil {
		t.Fatalf("expected empty public listing, got %v", got)
	}

	// admin approves
	w = do(t, r, http.MethodPatch, "/admin/products/"+id+"/approve", nil, asAdmin())
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/products", nil, nil)
	listed := decode(t, w)["products"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("expected 1 public product, got %d", len(listed))
	}

	// another seller cannot touch it
	intruder := header{"X-User-Id": "seller-9", "X-User-Role": "seller"}
	w = do(t, r, http.MethodDelete, "/products/"+id, nil, intruder)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", w.Code)
	}

	// owner takes it off the shelf
	w = do(t, r, http.MethodDelete, "/products/"+id, nil, asSeller())
	if w.Code != http.StatusOK {
		t.Fatalf("soft delete: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/products", nil, nil)
	if got := decode(t, w)["products"]; got != nil {
		t.Fatalf("soft-deleted product must leave the shelf, got %v", got)
	}
	// but the document survives for order history
	w = do(t, r, http.MethodGet, "/products/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("direct get after soft delete: %d", w.Code)
	}
}

func TestAdminRejectRequiresReason(t *testing.T) {
	r, fake := newTestRouter(t)
	seedApprovedProduct(t, fake, "p1", 5)

	w := do(t, r, http.MethodPatch, "/admin/products/p1/reject", map[string]string{}, asAdmin())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reason, got %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, "/admin/products/p1/reject", map[string]string{"reason": "stock photo"}, asAdmin())
	if w.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", w.Code, w.Body.String())
	}
	product := decode(t, w)["product"].(map[string]interface{})
	if product["status"] != catalog.StatusRejected || product["rejectionReason"] != "stock photo" {
		t.Fatalf("unexpected product: %v", product)
	}
}
