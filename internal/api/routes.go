package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/search", handler.SearchListings)
		api.POST("/properties", handler.CreateListing)
		api.POST("/properties/import", handler.ImportListings)
		api.GET("/properties/recent", handler.RecentListings)
		api.GET("/properties/:id", handler.GetListing)
		api.PUT("/properties/:id", handler.UpdateListing)
		api.DELETE("/properties/:id", handler.DeleteListing)
	}
}
