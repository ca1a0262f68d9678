package app

import (
	"database/sql"
	"net/http"

	"leave-expiry/internal/leave"
	"leave-expiry/internal/messaging/kafka"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	outboxRepo kafka.OutboxRepository,
) {
	// --- Repositories ---
	leaveRepo := leave.NewRepository(gormDB)

	// --- Services ---
	leaveService := leave.NewService(db, leaveRepo, outboxRepo)

	// --- Handlers ---
	leaveHandler := leave.NewHandler(leaveService)

	// --- Routes Registration ---
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	leave.RegisterRoutes(router, leaveHandler)
}
