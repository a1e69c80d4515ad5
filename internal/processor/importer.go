package processor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"nestquest/server/config"
	"nestquest/server/internal/database"
	"nestquest/server/internal/models"
	"nestquest/server/internal/queue"
)

// BatchImporter drains the listing queue and upserts batches inside
// transactions, with bounded retries for transient failures.
type BatchImporter struct {
	db     *gorm.DB
	logger *logrus.Logger
	config *config.Config
	queue  *queue.ListingQueue
}

func NewBatchImporter(db *gorm.DB, queue *queue.ListingQueue, config *config.Config, logger *logrus.Logger) *BatchImporter {
	return &BatchImporter{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
	}
}

// Start subscribes the importer to the queue and launches the configured
// number of drain workers.
func (p *BatchImporter) Start() {
	p.queue.Subscribe(func(batch []*models.Listing) error {
		return p.importBatch(batch)
	})
	for i := 0; i < p.config.BatchImport.WorkerCount; i++ {
		p.queue.Start()
	}
}

func (p *BatchImporter) importBatch(batch []*models.Listing) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchImport.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch import, attempt %d of %d", attempt, p.config.BatchImport.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchImport.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			return database.UpsertListings(tx, batch)
		})

		if err == nil {
			p.logger.Infof("Successfully imported batch of %d listings", len(batch))
			return nil
		}

		p.logger.Errorf("Batch import failed: %v", err)
	}

	return fmt.Errorf("failed to import batch after %d attempts: %w", p.config.BatchImport.MaxRetries, err)
}
