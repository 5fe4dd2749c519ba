package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"parcelscope/server/internal/database"
	"parcelscope/server/internal/queue"
)

func BenchmarkBatchProcessing(b *testing.B) {
	db, err := database.NewTestDB()
	require.NoError(b, err)
	err = database.MigrateSchema(db)
	require.NoError(b, err)

	batchSizes := []int{10, 100, 500}
	processorCounts := []int{1, 4}

	for _, batchSize := range batchSizes {
		for _, processors := range processorCounts {
			b.Run(fmt.Sprintf("BatchSize_%d_Processors_%d", batchSize, processors), func(b *testing.B) {
				cfg := testConfig(processors, 3)
				cfg.BatchProcessing.MaxBatchSize = batchSize
				processor := NewBatchProcessor(db, queue.NewParcelQueue(batchSize, quietLogger()), cfg, quietLogger())
				defer processor.Stop()

				parcels := generateTestParcels(batchSize)

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := processor.handleBatch(parcels); err != nil {
						b.Fatal(err)
					}
				}
				b.ReportMetric(float64(batchSize*b.N)/b.Elapsed().Seconds(), "parcels/s")
			})
		}
	}
}
