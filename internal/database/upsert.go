package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nestquest/server/internal/models"
)

// UpsertListings inserts or replaces a batch of listings inside the given
// transaction. Listings with an id update the existing row; the rest insert.
func UpsertListings(tx *gorm.DB, batch []*models.Listing) error {
	if len(batch) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert listings: %w", err)
	}
	return nil
}
