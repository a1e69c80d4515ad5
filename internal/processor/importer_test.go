package processor

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestquest/server/config"
	"nestquest/server/internal/database"
	"nestquest/server/internal/models"
	"nestquest/server/internal/queue"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchImport.QueueSize = 10
	cfg.BatchImport.WorkerCount = 1
	cfg.BatchImport.MaxRetries = 1
	cfg.BatchImport.RetryDelay = 0
	return cfg
}

func TestBatchImporter_ImportsBatch(t *testing.T) {
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	defer db.Close()

	logger := logrus.New()
	q := queue.NewListingQueue(10, logger)
	importer := NewBatchImporter(db.DB(), q, testConfig(), logger)
	importer.Start()
	defer q.Close()

	batch := []*models.Listing{
		{Title: "Imported flat", Latitude: 28.61, Longitude: 77.21,
			Price: models.Price{Amount: 12000, Type: models.TransactionRent}},
		{Title: "Imported villa", Latitude: 19.07, Longitude: 72.87,
			Price: models.Price{Amount: 20000000, Type: models.TransactionSale}},
	}
	require.NoError(t, q.Push(batch))

	assert.Eventually(t, func() bool {
		var count int64
		db.DB().Model(&models.Listing{}).Count(&count)
		return count == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBatchImporter_UpsertReplacesExisting(t *testing.T) {
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	defer db.Close()

	logger := logrus.New()
	q := queue.NewListingQueue(10, logger)
	importer := NewBatchImporter(db.DB(), q, testConfig(), logger)
	importer.Start()
	defer q.Close()

	first := []*models.Listing{{ID: 1, Title: "Original title",
		Price: models.Price{Amount: 10000, Type: models.TransactionRent}}}
	require.NoError(t, q.Push(first))

	assert.Eventually(t, func() bool {
		var l models.Listing
		return db.DB().First(&l, 1).Error == nil
	}, 2*time.Second, 20*time.Millisecond)

	second := []*models.Listing{{ID: 1, Title: "Updated title",
		Price: models.Price{Amount: 11000, Type: models.TransactionRent}}}
	require.NoError(t, q.Push(second))

	assert.Eventually(t, func() bool {
		var l models.Listing
		if err := db.DB().First(&l, 1).Error; err != nil {
			return false
		}
		return l.Title == "Updated title"
	}, 2*time.Second, 20*time.Millisecond)

	var count int64
	db.DB().Model(&models.Listing{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
