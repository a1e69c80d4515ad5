package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmcloughlin/geohash"
	"github.com/sirupsen/logrus"

	"nestquest/server/internal/database"
	"nestquest/server/internal/geocoding"
	"nestquest/server/internal/models"
	"nestquest/server/internal/queue"
	"nestquest/server/internal/search"
)

// geohashPrecision is the stored geohash length; 9 characters is roughly
// a 5 m cell, well below geocoding accuracy.
const geohashPrecision = 9

// Searcher runs the search pipeline for one request.
type Searcher interface {
	Search(ctx context.Context, location string, params search.RawParams) (models.SearchResult, error)
}

// AddressResolver geocodes a structured address.
type AddressResolver interface {
	ResolveAddress(ctx context.Context, addr models.Address) (geocoding.Coordinate, error)
}

// ListingStore is the persistence surface the handlers need.
type ListingStore interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id int64) error
	RecentListings(ctx context.Context, limit int) ([]models.Listing, error)
}

type Handler struct {
	store    ListingStore
	logger   *logrus.Logger
	resolver AddressResolver
	searcher Searcher
	queue    *queue.ListingQueue
}

func NewHandler(store ListingStore, resolver AddressResolver, searcher Searcher, importQueue *queue.ListingQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Handler{
		store:    store,
		logger:   logger,
		resolver: resolver,
		searcher: searcher,
		queue:    importQueue,
	}
}

// SearchListings handles GET /api/search. The location parameter is
// required; bedroom, propertyType, budgetType and budget are optional
// filters.
func (h *Handler) SearchListings(c *gin.Context) {
	location := c.Query("location")
	params := search.RawParams{
		Bedroom:      c.Query("bedroom"),
		PropertyType: c.Query("propertyType"),
		BudgetType:   c.Query("budgetType"),
		Budget:       c.Query("budget"),
	}

	result, err := h.searcher.Search(c.Request.Context(), location, params)
	if err != nil {
		h.respondSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   result.Count,
		"data":    result.Listings,
	})
}

func (h *Handler) respondSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, search.ErrMissingLocation), errors.Is(err, geocoding.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Location is required"})
	case errors.Is(err, search.ErrNoListings):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No properties found matching your criteria."})
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WithError(err).Error("Search timed out upstream")
		c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "message": "Search timed out, please retry"})
	default:
		h.logger.WithError(err).Error("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to search properties"})
	}
}

// ListingRequest is the payload for creating a listing.
type ListingRequest struct {
	Title        string         `json:"title" binding:"required"`
	Description  string         `json:"description"`
	Address      models.Address `json:"address"`
	Price        models.Price   `json:"price"`
	PropertyType string         `json:"property_type"`
	Bedrooms     int            `json:"bedrooms"`
	Bathrooms    int            `json:"bathrooms"`
	Area         float64        `json:"area"`
	Amenities    []string       `json:"amenities"`
	Images       []string       `json:"images"`
}

// CreateListing handles POST /api/properties. The address must be complete;
// the coordinate is always produced by geocoding, never taken from the
// client.
func (h *Handler) CreateListing(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse listing request")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	if missing := missingAddressFields(req.Address); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": fmt.Sprintf("Incomplete address provided. Missing fields: %s", strings.Join(missing, ", ")),
		})
		return
	}
	if msg := validateListingFields(req.PropertyType, req.Price); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	coord, err := h.resolver.ResolveAddress(c.Request.Context(), req.Address)
	if err != nil {
		h.respondGeocodeError(c, err)
		return
	}

	listing := &models.Listing{
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		Latitude:     coord.Latitude,
		Longitude:    coord.Longitude,
		Geohash:      geohash.EncodeWithPrecision(coord.Latitude, coord.Longitude, geohashPrecision),
		Price:        req.Price,
		PropertyType: req.PropertyType,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Area:         req.Area,
		Amenities:    req.Amenities,
		Images:       req.Images,
		IsAvailable:  true,
	}

	if err := h.store.CreateListing(c.Request.Context(), listing); err != nil {
		h.logger.WithError(err).Error("Failed to create listing")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create property"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Property created successfully",
		"property": listing,
	})
}

// UpdateListingRequest carries optional replacements; nil fields keep the
// stored value.
type UpdateListingRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Address      *models.Address `json:"address"`
	Price        *models.Price   `json:"price"`
	PropertyType *string         `json:"property_type"`
	Bedrooms     *int            `json:"bedrooms"`
	Bathrooms    *int            `json:"bathrooms"`
	Area         *float64        `json:"area"`
	Amenities    []string        `json:"amenities"`
	Images       []string        `json:"images"`
	IsAvailable  *bool           `json:"is_available"`
}

// UpdateListing handles PUT /api/properties/:id. An address change triggers
// re-geocoding; the merged address must still be complete.
func (h *Handler) UpdateListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid property id"})
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse update request")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	listing, err := h.store.GetListing(c.Request.Context(), id)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Description != nil {
		listing.Description = *req.Description
	}
	if req.Price != nil {
		listing.Price = *req.Price
	}
	if req.PropertyType != nil {
		listing.PropertyType = *req.PropertyType
	}
	if req.Bedrooms != nil {
		listing.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		listing.Bathrooms = *req.Bathrooms
	}
	if req.Area != nil {
		listing.Area = *req.Area
	}
	if req.Amenities != nil {
		listing.Amenities = req.Amenities
	}
	if req.Images != nil {
		listing.Images = req.Images
	}
	if req.IsAvailable != nil {
		listing.IsAvailable = *req.IsAvailable
	}
	if msg := validateListingFields(listing.PropertyType, listing.Price); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	if req.Address != nil {
		merged := mergeAddress(listing.Address, *req.Address)
		if missing := missingAddressFields(merged); len(missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Incomplete address provided"})
			return
		}

		coord, err := h.resolver.ResolveAddress(c.Request.Context(), merged)
		if err != nil {
			h.respondGeocodeError(c, err)
			return
		}
		listing.Address = merged
		listing.Latitude = coord.Latitude
		listing.Longitude = coord.Longitude
		listing.Geohash = geohash.EncodeWithPrecision(coord.Latitude, coord.Longitude, geohashPrecision)
	}

	if err := h.store.UpdateListing(c.Request.Context(), listing); err != nil {
		h.logger.WithError(err).Error("Failed to update listing")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update property"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Property updated successfully",
		"property": listing,
	})
}

// GetListing handles GET /api/properties/:id.
func (h *Handler) GetListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid property id"})
		return
	}

	listing, err := h.store.GetListing(c.Request.Context(), id)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "property": listing})
}

// DeleteListing handles DELETE /api/properties/:id.
func (h *Handler) DeleteListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid property id"})
		return
	}

	if err := h.store.DeleteListing(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Property deleted successfully"})
}

// RecentListings handles GET /api/properties/recent.
func (h *Handler) RecentListings(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	listings, err := h.store.RecentListings(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent listings")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get recent properties"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(listings),
		"data":    listings,
	})
}

// ImportListings handles POST /api/properties/import. Batches are queued
// and upserted asynchronously.
func (h *Handler) ImportListings(c *gin.Context) {
	var batch []*models.Listing
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Error("Failed to parse import batch")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Import batch is empty"})
		return
	}

	if err := h.queue.Push(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue import batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Import queue unavailable, please retry"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": fmt.Sprintf("Queued %d listings for import", len(batch)),
	})
}

func (h *Handler) respondGeocodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, geocoding.ErrIncompleteAddress):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WithError(err).Error("Geocoding timed out")
		c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "message": "Geocoding timed out, please retry"})
	default:
		h.logger.WithError(err).Error("Geocoding failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to geocode the provided address"})
	}
}

func (h *Handler) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrListingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Property not found"})
		return
	}
	h.logger.WithError(err).Error("Listing store error")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
}

func missingAddressFields(addr models.Address) []string {
	var missing []string
	if addr.Street == "" {
		missing = append(missing, "street")
	}
	if addr.City == "" {
		missing = append(missing, "city")
	}
	if addr.State == "" {
		missing = append(missing, "state")
	}
	if addr.Country == "" {
		missing = append(missing, "country")
	}
	if addr.PostalCode == "" {
		missing = append(missing, "postalCode")
	}
	return missing
}

func mergeAddress(current, update models.Address) models.Address {
	merged := current
	if update.Street != "" {
		merged.Street = update.Street
	}
	if update.District != "" {
		merged.District = update.District
	}
	if update.City != "" {
		merged.City = update.City
	}
	if update.State != "" {
		merged.State = update.State
	}
	if update.Country != "" {
		merged.Country = update.Country
	}
	if update.PostalCode != "" {
		merged.PostalCode = update.PostalCode
	}
	if update.Landmark != "" {
		merged.Landmark = update.Landmark
	}
	return merged
}

func validateListingFields(propertyType string, price models.Price) string {
	if !models.IsValidPropertyType(propertyType) {
		return fmt.Sprintf("Invalid property type %q", propertyType)
	}
	if price.Type != models.TransactionRent && price.Type != models.TransactionSale {
		return "Price type must be Rent or Sale"
	}
	if price.Amount <= 0 {
		return "Price amount must be positive"
	}
	return ""
}
