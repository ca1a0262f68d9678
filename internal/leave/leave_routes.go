package leave

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r gin.IRouter, handler *Handler) {
	leaves := r.Group("/leave")
	{
		leaves.GET("", handler.ListByOwner)
		leaves.GET("/pending", handler.ListPending)
		leaves.GET("/:id", handler.GetByID)
		leaves.POST("", handler.Create)
		leaves.PUT("/:id", handler.UpdateStatus)
	}
}
