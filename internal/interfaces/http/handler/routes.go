package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes registers ingestion routes
func (h *IngestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingest", h.Ingest)
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/health", h.Health)
	}
}
