package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderflow/order-ingest-service/internal/model"
	"github.com/orderflow/order-ingest-service/internal/repo"
)

// Publisher is the broker side of the dual write. The kafka implementation
// lives in internal/publisher; tests substitute a fake.
type Publisher interface {
	Publish(ctx context.Context, evt model.OutboxEvent) error
}

// ErrNoSuchOrder is returned by GetStatus for unknown ids.
var ErrNoSuchOrder = errors.New("no such order")

// ErrStatusUnavailable wraps transient store faults during a status lookup;
// the caller may retry.
var ErrStatusUnavailable = errors.New("status temporarily unavailable")

// PublishFailedError reports the partial-failure outcome: the record is
// durable and discoverable via status lookup, but the announcement did not
// go out. Distinct from a store failure, where nothing was accepted at all.
type PublishFailedError struct {
	OrderID string
	Err     error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("order %s recorded but announcement failed: %v", e.OrderID, e.Err)
}

func (e *PublishFailedError) Unwrap() error { return e.Err }

// StatusView is the client-facing projection of a stored record, with the
// payload reconstituted so callers can introspect order contents.
type StatusView struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Status    string      `json:"status"`
	Order     model.Order `json:"order_data"`
}

// OrderService coordinates the store-then-announce dual write and serves
// status lookups. Each request is an independent unit of work; the service
// holds no mutable state of its own.
type OrderService struct {
	repo repo.RepositoryInterface
	pub  Publisher
	log  *zap.SugaredLogger
}

func NewOrderService(r repo.RepositoryInterface, p Publisher, logger *zap.SugaredLogger) *OrderService {
	return &OrderService{repo: r, pub: p, log: logger}
}

// IngestOrder accepts a validated order: generates the id and acceptance
// timestamp, records it with status pending, then announces it. The insert
// must succeed before any publish is attempted; a publish failure leaves the
// record in place and is reported as a PublishFailedError carrying the id.
// No internal retry on either leg: failures surface immediately and the
// sweep handles republication.
func (s *OrderService) IngestOrder(ctx context.Context, order model.Order) (string, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("serialize order: %w", err)
	}

	id := uuid.NewString()
	ts := time.Now().UTC()

	rec := &model.OrderRecord{
		ID:        id,
		Timestamp: ts,
		Status:    model.StatusPending,
		OrderData: string(payload),
	}
	if err := s.repo.InsertRecord(ctx, rec); err != nil {
		// Nothing recorded, so nothing to announce.
		return "", fmt.Errorf("accept order: %w", err)
	}

	evt := model.OutboxEvent{ID: id, Timestamp: ts, Order: payload}
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.log.Warnw("order recorded but publish failed", "order_id", id, "error", err)
		return id, &PublishFailedError{OrderID: id, Err: err}
	}

	// Best effort: if the flag update fails the sweep republishes, which
	// at-least-once consumers already tolerate.
	if err := s.repo.MarkAnnounced(ctx, id); err != nil {
		s.log.Warnw("mark announced failed", "order_id", id, "error", err)
	}
	return id, nil
}

// GetStatus resolves a stored record into a StatusView, reading through the
// cache. Cache faults are logged and fall through to the store; they never
// fail the request.
func (s *OrderService) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	if cached, err := s.repo.GetCachedStatus(ctx, id); err == nil {
		var view StatusView
		if err := json.Unmarshal(cached, &view); err == nil {
			return &view, nil
		}
		s.log.Warnw("corrupt cached status, falling back to store", "order_id", id)
	}

	rec, err := s.repo.LookupRecord(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNoSuchOrder)
		}
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}

	var order model.Order
	if err := json.Unmarshal([]byte(rec.OrderData), &order); err != nil {
		return nil, fmt.Errorf("%w: corrupt payload for %s: %v", ErrStatusUnavailable, id, err)
	}

	view := &StatusView{
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Status:    rec.Status,
		Order:     order,
	}
	if payload, err := json.Marshal(view); err == nil {
		if err := s.repo.CacheStatus(ctx, id, payload); err != nil {
			s.log.Warnw("cache status failed", "order_id", id, "error", err)
		}
	}
	return view, nil
}

// Repo exposes underlying repository (unit tests helper).
func (s *OrderService) Repo() repo.RepositoryInterface {
	return s.repo
}
