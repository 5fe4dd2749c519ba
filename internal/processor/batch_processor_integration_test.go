package processor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parcelscope/server/internal/database"
	"parcelscope/server/internal/models"
	"parcelscope/server/internal/queue"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.NewTestDB()
	require.NoError(t, err)

	err = database.MigrateSchema(db)
	require.NoError(t, err)

	return db
}

func TestBatchProcessingIntegration(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(2, 3)

	parcelQueue := queue.NewParcelQueue(cfg.BatchProcessing.MaxBatchSize, quietLogger())
	processor := NewBatchProcessor(db, parcelQueue, cfg, quietLogger())
	processor.Start()
	parcelQueue.Start()
	defer processor.Stop()
	defer parcelQueue.Close()

	density := 12.0
	testParcels := []*models.Parcel{
		{
			ID:                   "tlv-1",
			City:                 "Tel Aviv",
			TotalPrice:           1_200_000,
			ProjectedValue:       2_000_000,
			SizeSqm:              1000,
			ZoningStage:          models.StageMasterPlanApproved,
			DensityUnitsPerDunam: &density,
		},
		{
			ID:         "hfa-1",
			City:       "Haifa",
			TotalPrice: 600_000,
			SizeSqm:    750,
		},
	}
	require.NoError(t, parcelQueue.Push(testParcels))

	assert.Eventually(t, func() bool { return processor.Stored() == 2 }, 2*time.Second, 20*time.Millisecond)

	store := database.Wrap(db)
	for _, expected := range testParcels {
		stored, err := store.GetParcel(expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected.City, stored.City)
		assert.Equal(t, expected.TotalPrice, stored.TotalPrice)
		assert.Equal(t, expected.ZoningStage, stored.ZoningStage)
	}
}

func TestBatchProcessingWithConcurrency(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(4, 3)
	cfg.BatchProcessing.MaxBatchSize = 50

	parcelQueue := queue.NewParcelQueue(cfg.BatchProcessing.MaxBatchSize, quietLogger())
	processor := NewBatchProcessor(db, parcelQueue, cfg, quietLogger())
	processor.Start()
	parcelQueue.Start()
	defer processor.Stop()
	defer parcelQueue.Close()

	testBatches := make([][]*models.Parcel, 5)
	for i := range testBatches {
		batch := make([]*models.Parcel, 20)
		for j := range batch {
			batch[j] = &models.Parcel{
				ID:         fmt.Sprintf("parcel-%d-%d", i, j),
				City:       "Jerusalem",
				TotalPrice: float64(500_000 + i*100_000 + j*1000),
				SizeSqm:    1000,
			}
		}
		testBatches[i] = batch
	}

	var wg sync.WaitGroup
	for _, batch := range testBatches {
		wg.Add(1)
		go func(parcels []*models.Parcel) {
			defer wg.Done()
			assert.NoError(t, parcelQueue.Push(parcels))
		}(batch)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return processor.Stored() == 100 }, 5*time.Second, 50*time.Millisecond)

	var count int64
	result := db.Model(&models.Parcel{}).Count(&count)
	assert.NoError(t, result.Error)
	assert.Equal(t, int64(100), count) // 5 batches * 20 parcels
}

func TestBatchProcessingUpsertsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(2, 0)
	processor := NewBatchProcessor(db, queue.NewParcelQueue(10, quietLogger()), cfg, quietLogger())

	first := generateTestParcels(3)
	require.NoError(t, processor.handleBatch(first))

	repriced := generateTestParcels(3)
	repriced[1].TotalPrice = 1
	require.NoError(t, processor.handleBatch(repriced))

	var count int64
	require.NoError(t, db.Model(&models.Parcel{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	stored, err := database.Wrap(db).GetParcel("parcel-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.TotalPrice)
}
