package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(RequestID())

	api := router.Group("/api")
	{
		api.POST("/transactions", handler.IngestTransactions)

		comparables := api.Group("/comparables/:subject_id")
		{
			comparables.POST("/open", handler.OpenComparables)
			comparables.GET("", handler.GetComparables)
			comparables.POST("/select", handler.SelectComparable)
			comparables.POST("/deselect", handler.DeselectComparable)
			comparables.POST("/clear", handler.ClearComparables)
			comparables.PUT("/strategy", handler.SetStrategy)
			comparables.GET("/valuation", handler.GetValuation)
			comparables.POST("/refresh", handler.RefreshComparables)
			comparables.DELETE("", handler.CloseComparables)
		}
	}
}
