package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orderflow/order-ingest-service/internal/model"
)

// Store failure taxonomy. Callers branch on these with errors.Is; anything
// wrapped in ErrUnavailable is a transport-level fault and safe to retry
// out of band.
var (
	// ErrConflict means a record with the same id already exists. With
	// UUID-strength ids this should never fire, but it is mapped rather
	// than assumed impossible.
	ErrConflict = errors.New("record id already exists")
	// ErrNotFound means no record exists for the id.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps connection/transport failures from the store.
	ErrUnavailable = errors.New("store unavailable")
)

const statusCacheTTL = 5 * time.Minute

// RepositoryInterface restricts Repo methods (unit test mocks hang off this).
type RepositoryInterface interface {
	InsertRecord(ctx context.Context, rec *model.OrderRecord) error
	LookupRecord(ctx context.Context, id string) (*model.OrderRecord, error)
	ListUnannounced(ctx context.Context, limit int) ([]model.OrderRecord, error)
	MarkAnnounced(ctx context.Context, id string) error
	CacheStatus(ctx context.Context, id string, payload []byte) error
	GetCachedStatus(ctx context.Context, id string) ([]byte, error)
}

// Repository implements RepositoryInterface over gorm + redis.
type Repository struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRepository constructs repo. rdb may be nil; caching is then disabled.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger}
}

// InsertRecord writes a new order record. The record is the durable source
// of truth: it must be committed before any announcement is attempted.
func (r *Repository) InsertRecord(ctx context.Context, rec *model.OrderRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert record %s: %w", rec.ID, ErrConflict)
		}
		return fmt.Errorf("insert record %s: %w: %v", rec.ID, ErrUnavailable, err)
	}
	return nil
}

// LookupRecord fetches a record by id.
func (r *Repository) LookupRecord(ctx context.Context, id string) (*model.OrderRecord, error) {
	var rec model.OrderRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup record %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("lookup record %s: %w: %v", id, ErrUnavailable, err)
	}
	return &rec, nil
}

// ListUnannounced returns records whose broker announcement has not been
// confirmed, oldest first so the sweep preserves acceptance order.
func (r *Repository) ListUnannounced(ctx context.Context, limit int) ([]model.OrderRecord, error) {
	var recs []model.OrderRecord
	err := r.db.WithContext(ctx).
		Where("announced = ?", false).
		Order("timestamp").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list unannounced: %w: %v", ErrUnavailable, err)
	}
	return recs, nil
}

// MarkAnnounced flags a record as delivered to the broker.
func (r *Repository) MarkAnnounced(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&model.OrderRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"announced": true, "announced_at": &now}).Error
	if err != nil {
		return fmt.Errorf("mark announced %s: %w: %v", id, ErrUnavailable, err)
	}
	return nil
}

// CacheStatus writes a rendered status view to redis.
func (r *Repository) CacheStatus(ctx context.Context, id string, payload []byte) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, statusCacheKey(id), payload, statusCacheTTL).Err()
}

// GetCachedStatus reads a cached status view. Returns redis.Nil on miss.
func (r *Repository) GetCachedStatus(ctx context.Context, id string) ([]byte, error) {
	if r.rdb == nil {
		return nil, redis.Nil
	}
	return r.rdb.Get(ctx, statusCacheKey(id)).Bytes()
}

func statusCacheKey(id string) string { return "status:" + id }
