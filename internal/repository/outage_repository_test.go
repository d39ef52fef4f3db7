package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/normalize"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Customer{}, &model.Subscription{},
		&model.Outage{}, &model.AffectedLocation{},
		&model.NotificationRecord{},
	))
	return db
}

func update(key string, status model.OutageStatus, postcodes ...string) normalize.CanonicalUpdate {
	return normalize.CanonicalUpdate{
		Provider:   model.ProviderNationalGrid,
		NaturalKey: key,
		Status:     status,
		ReportedAt: time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC),
		SeenAt:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		Postcodes:  postcodes,
	}
}

func TestOutageUpsertCreate(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	res, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN", "E1 7AA"))
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, res.Kind)
	assert.True(t, res.LocationsChanged)
	assert.NotEmpty(t, res.OutageID)

	locs, err := repo.Locations(ctx, res.OutageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1 6AN", "E1 7AA"}, locs)
}

func TestOutageUpsertIdempotent(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)

	// 同一输入重复写入：同一行、无虚假 updated
	again, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUnchanged, again.Kind)
	assert.Equal(t, first.OutageID, again.OutageID)
	assert.False(t, again.LocationsChanged)

	_, total, err := repo.List(ctx, "", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestOutageUpsertStatusTransition(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, update("INCD-1", model.StatusReported, "E1 6AN"))
	require.NoError(t, err)

	res, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res.Kind)
	assert.False(t, res.LocationsChanged)

	res, err = repo.Upsert(ctx, update("INCD-1", model.StatusResolved, "E1 6AN"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res.Kind)

	o, err := repo.GetByID(ctx, res.OutageID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, o.Status)
}

func TestOutageUpsertReportedToResolvedDirect(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, update("INCD-1", model.StatusReported, "E1 6AN"))
	require.NoError(t, err)

	// reported -> resolved 直达是合法迁移，不是回退
	res, err := repo.Upsert(ctx, update("INCD-1", model.StatusResolved, "E1 6AN"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res.Kind)
	assert.False(t, res.StatusRegressed)

	o, err := repo.GetByID(ctx, res.OutageID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, o.Status)
}

func TestOutageUpsertBackwardTransitionDiscarded(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)

	// 状态机单调：ongoing -> reported 同样丢弃并计为回退
	res, err := repo.Upsert(ctx, update("INCD-1", model.StatusReported, "E1 6AN"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUnchanged, res.Kind)
	assert.True(t, res.StatusRegressed)

	o, err := repo.GetByID(ctx, res.OutageID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, o.Status)
}

func TestOutageUpsertRegressionDiscarded(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	created, err := repo.Upsert(ctx, update("INCD-1", model.StatusResolved, "E1 6AN"))
	require.NoError(t, err)

	// resolved 为终态：回退被丢弃，但 last_seen_at 照常刷新
	regress := update("INCD-1", model.StatusOngoing, "E1 6AN")
	regress.SeenAt = regress.SeenAt.Add(time.Hour)
	res, err := repo.Upsert(ctx, regress)
	require.NoError(t, err)
	assert.Equal(t, UpsertUnchanged, res.Kind)
	assert.True(t, res.StatusRegressed)

	o, err := repo.GetByID(ctx, created.OutageID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, o.Status)
	assert.Equal(t, regress.SeenAt.Unix(), o.LastSeenAt.UTC().Unix())
}

func TestOutageUpsertLocationReplacement(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	created, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN", "E1 7AA"))
	require.NoError(t, err)

	// 整组替换：上次集合不保留
	res, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 7AA", "M1 1AE"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res.Kind)
	assert.True(t, res.LocationsChanged)

	locs, err := repo.Locations(ctx, created.OutageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1 7AA", "M1 1AE"}, locs)

	// 顺序不同、集合相同不算变化
	res, err = repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "M1 1AE", "E1 7AA"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUnchanged, res.Kind)
	assert.False(t, res.LocationsChanged)
}

func TestOutageNaturalKeyScopedByProvider(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, update("REF-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)

	other := update("REF-1", model.StatusOngoing, "KY16 9SS")
	other.Provider = model.ProviderSSEN
	res, err := repo.Upsert(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, res.Kind)

	_, total, err := repo.List(ctx, "", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestOutageList(t *testing.T) {
	repo := NewOutageRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, update("INCD-1", model.StatusOngoing, "E1 6AN"))
	require.NoError(t, err)
	ssen := update("S-1", model.StatusResolved, "KY16 9SS")
	ssen.Provider = model.ProviderSSEN
	_, err = repo.Upsert(ctx, ssen)
	require.NoError(t, err)

	outages, total, err := repo.List(ctx, string(model.ProviderSSEN), "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, outages, 1)
	assert.Equal(t, "S-1", outages[0].NaturalKey)

	_, total, err = repo.List(ctx, "", string(model.StatusOngoing), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
