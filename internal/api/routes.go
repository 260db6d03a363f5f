package api

import (
	"github.com/gin-gonic/gin"
	"github.com/youruser/idcards/internal/layout"
)

func RegisterRoutes(r *gin.Engine, cfg Config) {
	if cfg.Layout == nil {
		l := layout.Default()
		cfg.Layout = &l
	}
	if cfg.MaxSide == 0 {
		cfg.MaxSide = DefaultMaxSide
	}
	s := &server{cfg: cfg}
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/qr", qrHandler)
		api.GET("/layout", s.layoutHandler)
		api.POST("/cards", s.cardsHandler)
	}
}
