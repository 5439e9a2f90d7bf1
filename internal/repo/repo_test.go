package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow/order-ingest-service/internal/logger"
	"github.com/orderflow/order-ingest-service/internal/model"
)

func newTestRepo(t *testing.T) *Repository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.OrderRecord{}))
	return NewRepository(db, nil, must(logger.NewLogger("test")))
}

func testRecord(id string, ts time.Time) *model.OrderRecord {
	return &model.OrderRecord{
		ID:        id,
		Timestamp: ts,
		Status:    model.StatusPending,
		OrderData: `{"orderTotal":24.98}`,
	}
}

func TestInsertAndLookup(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC()
	assert.NoError(t, r.InsertRecord(ctx, testRecord("ord-1", ts)))

	got, err := r.LookupRecord(ctx, "ord-1")
	assert.NoError(t, err)
	assert.Equal(t, "ord-1", got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, `{"orderTotal":24.98}`, got.OrderData)
	assert.WithinDuration(t, ts, got.Timestamp, time.Second)
	assert.False(t, got.Announced)
}

func TestInsertConflict(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC()
	assert.NoError(t, r.InsertRecord(ctx, testRecord("ord-dup", ts)))

	err := r.InsertRecord(ctx, testRecord("ord-dup", ts))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLookupNotFound(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.LookupRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnannouncedSweepFlow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, id := range []string{"ord-a", "ord-b", "ord-c"} {
		assert.NoError(t, r.InsertRecord(ctx, testRecord(id, base.Add(time.Duration(i)*time.Second))))
	}
	assert.NoError(t, r.MarkAnnounced(ctx, "ord-b"))

	recs, err := r.ListUnannounced(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, recs, 2)
	// oldest first
	assert.Equal(t, "ord-a", recs[0].ID)
	assert.Equal(t, "ord-c", recs[1].ID)

	marked, err := r.LookupRecord(ctx, "ord-b")
	assert.NoError(t, err)
	assert.True(t, marked.Announced)
	assert.NotNil(t, marked.AnnouncedAt)
}

func TestListUnannouncedLimit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("ord-%d", i)
		assert.NoError(t, r.InsertRecord(ctx, testRecord(id, base.Add(time.Duration(i)*time.Second))))
	}

	recs, err := r.ListUnannounced(ctx, 3)
	assert.NoError(t, err)
	assert.Len(t, recs, 3)
}

func must(l *zap.SugaredLogger, err error) *zap.SugaredLogger {
	if err != nil {
		panic(err)
	}
	return l
}
