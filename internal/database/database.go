package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nestquest/server/internal/models"
)

// ErrListingNotFound means no listing exists with the requested id.
var ErrListingNotFound = errors.New("listing not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer, and :memory: databases exist per
	// connection, so the pool stays at one.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: db}, nil
}

// RunMigrations creates or updates the listings schema, including the
// coordinate index the proximity query depends on.
func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Listing{}); err != nil {
		return fmt.Errorf("failed to migrate listings table: %w", err)
	}
	return nil
}

func (d *Database) CreateListing(ctx context.Context, l *models.Listing) error {
	if err := d.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (d *Database) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var l models.Listing
	err := d.db.WithContext(ctx).First(&l, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

func (d *Database) UpdateListing(ctx context.Context, l *models.Listing) error {
	if err := d.db.WithContext(ctx).Save(l).Error; err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

func (d *Database) DeleteListing(ctx context.Context, id int64) error {
	res := d.db.WithContext(ctx).Delete(&models.Listing{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// RecentListings returns the most recently created listings, newest first.
func (d *Database) RecentListings(ctx context.Context, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent listings: %w", err)
	}
	return listings, nil
}

// NearbyWithFilter returns listings within maxDistanceMeters of center that
// satisfy every criteria constraint, ordered by ascending distance and
// truncated to limit. Candidate selection uses a bounding-box prefilter on
// the indexed coordinate columns; the exact haversine distance decides the
// final cut and ordering.
func (d *Database) NearbyWithFilter(ctx context.Context, center orb.Point, maxDistanceMeters float64, criteria models.SearchCriteria, limit int) ([]models.Listing, error) {
	q := d.db.WithContext(ctx).Model(&models.Listing{})

	if len(criteria.Bedrooms) > 0 {
		q = q.Where("bedrooms IN ?", criteria.Bedrooms)
	}
	if len(criteria.PropertyTypes) > 0 {
		q = q.Where("property_type IN ?", criteria.PropertyTypes)
	}
	if b := criteria.Budget; b != nil {
		q = q.Where("price_type = ?", string(b.Type)).
			Where("price_amount >= ?", b.Min)
		if !math.IsInf(b.Max, 1) {
			q = q.Where("price_amount <= ?", b.Max)
		}
	}

	// The box degenerates at continent-scale radii; only constrain the
	// dimensions that still carry information. A box crossing the
	// antimeridian comes back with min > max, both normalized into
	// (-180,180), and needs the disjoint form.
	bound := geo.NewBoundAroundPoint(center, maxDistanceMeters)
	minLon, maxLon := bound.Min.Lon(), bound.Max.Lon()
	switch {
	case minLon <= -180 || maxLon >= 180:
		// spans all longitudes
	case minLon > maxLon:
		q = q.Where("(longitude >= ? OR longitude <= ?)", minLon, maxLon)
	default:
		q = q.Where("longitude BETWEEN ? AND ?", minLon, maxLon)
	}
	minLat := math.Max(bound.Min.Lat(), -90)
	maxLat := math.Min(bound.Max.Lat(), 90)
	q = q.Where("latitude BETWEEN ? AND ?", minLat, maxLat)

	var candidates []models.Listing
	if err := q.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	type scored struct {
		listing  models.Listing
		distance float64
	}
	matches := make([]scored, 0, len(candidates))
	for _, l := range candidates {
		dist := geo.DistanceHaversine(center, l.Point())
		if dist <= maxDistanceMeters {
			matches = append(matches, scored{listing: l, distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	listings := make([]models.Listing, len(matches))
	for i, m := range matches {
		listings[i] = m.listing
	}
	return listings, nil
}

// DB exposes the underlying gorm handle for transactional callers.
func (d *Database) DB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
