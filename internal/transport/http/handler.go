package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderflow/order-ingest-service/internal/metrics"
	"github.com/orderflow/order-ingest-service/internal/model"
	"github.com/orderflow/order-ingest-service/internal/service"
	"github.com/orderflow/order-ingest-service/internal/validation"
)

func RegisterHandlers(r *gin.Engine, svc *service.OrderService) {
	r.POST("/ingest", ingestHandler(svc))
	r.GET("/status/:order_id", statusHandler(svc))
	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func ingestHandler(svc *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order model.Order
		if err := c.ShouldBindJSON(&order); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed order payload: " + err.Error()})
			return
		}
		if err := validation.ValidateOrder(order); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		start := time.Now()
		id, err := svc.IngestOrder(c, order)
		metrics.IngestDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			// Partial failure: the record exists, so the id goes back to
			// the caller for status lookup and reconciliation.
			var pf *service.PublishFailedError
			if errors.As(err, &pf) {
				metrics.PublishFailuresTotal.Inc()
				c.JSON(http.StatusInternalServerError, gin.H{
					"detail":   pf.Error(),
					"order_id": pf.OrderID,
				})
				return
			}
			metrics.StoreFailuresTotal.Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "order not accepted: " + err.Error()})
			return
		}

		metrics.OrdersAcceptedTotal.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "success", "order_id": id})
	}
}

func statusHandler(svc *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("order_id")
		view, err := svc.GetStatus(c, id)
		if err != nil {
			if errors.Is(err, service.ErrNoSuchOrder) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "no such order: " + id})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// healthHandler is a shallow liveness probe; it deliberately does not touch
// the store or the broker.
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
