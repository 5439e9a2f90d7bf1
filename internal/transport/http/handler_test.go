package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow/order-ingest-service/internal/config"
	"github.com/orderflow/order-ingest-service/internal/logger"
	"github.com/orderflow/order-ingest-service/internal/model"
	"github.com/orderflow/order-ingest-service/internal/publisher"
	"github.com/orderflow/order-ingest-service/internal/repo"
	"github.com/orderflow/order-ingest-service/internal/service"
)

type fakePublisher struct {
	events []model.OutboxEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt model.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakePublisher) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.OrderRecord{}))

	log, err := logger.NewLogger("test")
	assert.NoError(t, err)

	pub := &fakePublisher{}
	repository := repo.NewRepository(db, nil, log)
	svc := service.NewOrderService(repository, pub, log)
	router := NewRouter(svc, config.RateLimitConfig{RPS: 1000, Burst: 1000}, log)
	return router, pub
}

func orderJSON() string {
	return `{
		"customer": {
			"id": "c1",
			"email": "jane@example.com",
			"firstName": "Jane",
			"lastName": "Doe",
			"shippingAddress": {"street": "123 Main St", "city": "Metropolis", "state": "NY", "zip_code": "10001", "country": "USA"},
			"billingAddress": {"street": "123 Main St", "city": "Metropolis", "state": "NY", "zip_code": "10001", "country": "USA"}
		},
		"items": [{"productId": "p1", "name": "Widget", "price": 9.99, "quantity": 2}],
		"shippingMethod": {"id": "s1", "name": "Standard", "cost": 5.0},
		"payment": {"method": "card", "token": "tok_x", "amount": 24.98, "currency": "USD"},
		"orderTotal": 24.98,
		"taxAmount": 0,
		"discountAmount": 0
	}`
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestAndStatus(t *testing.T) {
	router, pub := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/ingest", orderJSON())
	assert.Equal(t, http.StatusOK, w.Code)

	var ingestResp struct {
		Status  string `json:"status"`
		OrderID string `json:"order_id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingestResp))
	assert.Equal(t, "success", ingestResp.Status)
	assert.NotEmpty(t, ingestResp.OrderID)
	assert.Len(t, pub.events, 1)

	w = doRequest(router, http.MethodGet, "/status/"+ingestResp.OrderID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var view service.StatusView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, ingestResp.OrderID, view.ID)
	assert.Equal(t, model.StatusPending, view.Status)

	// round-trip: the stored payload reconstitutes the submitted order
	var sent model.Order
	assert.NoError(t, json.Unmarshal([]byte(orderJSON()), &sent))
	assert.Equal(t, sent, view.Order)
}

func TestIngestMalformedBody(t *testing.T) {
	router, pub := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/ingest", `{"customer": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
	assert.Empty(t, pub.events)
}

func TestIngestValidationFailure(t *testing.T) {
	router, pub := newTestRouter(t)

	body := strings.Replace(orderJSON(),
		`"items": [{"productId": "p1", "name": "Widget", "price": 9.99, "quantity": 2}]`,
		`"items": []`, 1)
	w := doRequest(router, http.MethodPost, "/ingest", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "items must not be empty")
	assert.Empty(t, pub.events)
}

func TestIngestPublishFailure(t *testing.T) {
	router, pub := newTestRouter(t)
	pub.err = publisher.ErrConnectionFailed

	w := doRequest(router, http.MethodPost, "/ingest", orderJSON())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Detail  string `json:"detail"`
		OrderID string `json:"order_id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Detail, "recorded but announcement failed")
	assert.NotEmpty(t, resp.OrderID)

	// the partial-failure id is still reachable via status lookup
	w = doRequest(router, http.MethodGet, "/status/"+resp.OrderID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.StatusPending)
}

func TestStatusUnknownOrder(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/status/2c8c9fbe-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no such order")
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
