package handler

import (
	"context"
	"net/http"
	"time"

	"warehouse/internal/infra"
	"warehouse/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the SMTP breaker and the
// email dead letter queue; never exposes credentials or internals. An open
// breaker does not fail the check: stock operations keep working without mail.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if db == nil {
			dbStatus = "error"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueEmail); err == nil {
			dlq = n
		}

		smtp := infra.BreakerStatus{State: "disabled"}
		if smtpCB != nil {
			smtp = smtpCB.Status()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"db":        dbStatus,
			"redis":     redisStatus,
			"smtp":      smtp.State,
			"smtp_cb":   smtp,
			"email_dlq": dlq,
		})
	}
}
