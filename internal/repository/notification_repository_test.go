package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/power-monitor/internal/model"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func seedPair(t *testing.T, db *gorm.DB) (customerID, outageID string) {
	t.Helper()
	customerID = uuid.New().String()
	outageID = uuid.New().String()
	require.NoError(t, db.Create(&model.Customer{
		ID: customerID, FirstName: "Ada", Email: "ada@example.com", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&model.Outage{
		ID:             outageID,
		SourceProvider: model.ProviderNationalGrid,
		NaturalKey:     "INCD-1",
		Status:         model.StatusOngoing,
		ReportedAt:     mustParse(t, "2026-03-12T08:30:00Z"),
		LastSeenAt:     mustParse(t, "2026-03-12T10:00:00Z"),
		Locations:      []model.AffectedLocation{{ID: uuid.New().String(), Postcode: "E1 6AN"}},
	}).Error)
	return customerID, outageID
}

func TestAuthorizeAtMostOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	customerID, outageID := seedPair(t, db)
	ctx := context.Background()

	first, err := repo.Authorize(ctx, customerID, outageID)
	require.NoError(t, err)
	assert.True(t, first.Approved)
	assert.NotEmpty(t, first.RecordID)

	// 同一 (customer, outage) 再次申请：唯一约束拒绝，不是错误
	again, err := repo.Authorize(ctx, customerID, outageID)
	require.NoError(t, err)
	assert.False(t, again.Approved)

	var count int64
	require.NoError(t, db.Model(&model.NotificationRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthorizeConcurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	customerID, outageID := seedPair(t, db)

	// 并发申请同一对，最多一个获批
	const workers = 8
	approved := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Authorize(context.Background(), customerID, outageID)
			if err != nil {
				// sqlite 单写锁下的并发冲突，等价于未获批
				approved <- false
				return
			}
			approved <- res.Approved
		}()
	}
	wg.Wait()
	close(approved)

	n := 0
	for ok := range approved {
		if ok {
			n++
		}
	}
	assert.LessOrEqual(t, n, 1)
}

func TestMarkOutcome(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	customerID, outageID := seedPair(t, db)
	ctx := context.Background()

	res, err := repo.Authorize(ctx, customerID, outageID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkOutcome(ctx, res.RecordID, model.OutcomeSent))

	var rec model.NotificationRecord
	require.NoError(t, db.First(&rec, "id = ?", res.RecordID).Error)
	assert.Equal(t, model.OutcomeSent, rec.Outcome)
	require.NotNil(t, rec.SentAt)

	// 重试失败不回填 sent_at
	require.NoError(t, repo.MarkOutcome(ctx, res.RecordID, model.OutcomeFailedRetryable))
	require.NoError(t, db.First(&rec, "id = ?", res.RecordID).Error)
	assert.Equal(t, model.OutcomeFailedRetryable, rec.Outcome)
}

func TestListRetryable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	customerID, outageID := seedPair(t, db)
	ctx := context.Background()

	res, err := repo.Authorize(ctx, customerID, outageID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkOutcome(ctx, res.RecordID, model.OutcomeFailedRetryable))

	recs, err := repo.ListRetryable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// 补偿扫描直接投递，关联必须预加载
	require.NotNil(t, recs[0].Customer)
	assert.Equal(t, "ada@example.com", recs[0].Customer.Email)
	require.NotNil(t, recs[0].Outage)
	require.Len(t, recs[0].Outage.Locations, 1)
	assert.Equal(t, "E1 6AN", recs[0].Outage.Locations[0].Postcode)

	// sent 的行不进补偿队列
	require.NoError(t, repo.MarkOutcome(ctx, res.RecordID, model.OutcomeSent))
	recs, err = repo.ListRetryable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
