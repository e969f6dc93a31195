package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(bookingHandler *handlers.BookingHandler, semenHandler *handlers.SemenHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", handlers.TenantContext())
	{
		api.POST("/bookings", bookingHandler.Create)
		api.GET("/bookings", bookingHandler.List)
		api.GET("/bookings/:id", bookingHandler.Get)
		api.POST("/bookings/:id/transition", bookingHandler.Transition)
		api.POST("/bookings/:id/payments", bookingHandler.RecordPayment)
		api.POST("/bookings/:id/ship-semen", bookingHandler.ShipSemen)

		api.POST("/semen-batches", semenHandler.CreateBatch)
		api.GET("/semen-batches", semenHandler.ListBatches)
		api.GET("/semen-batches/:id", semenHandler.GetBatch)
		api.PATCH("/semen-batches/:id", semenHandler.UpdateBatch)
		api.DELETE("/semen-batches/:id", semenHandler.DeleteBatch)
		api.POST("/semen-batches/:id/archive", semenHandler.ArchiveBatch)
		api.POST("/semen-batches/:id/dispense", semenHandler.Dispense)
		api.GET("/semen-batches/:id/usages", semenHandler.ListUsages)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
