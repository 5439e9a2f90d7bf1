package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orderflow/order-ingest-service/internal/config"
	"github.com/orderflow/order-ingest-service/internal/service"
)

func NewRouter(svc *service.OrderService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc)
	return r
}
