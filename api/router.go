package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paper-atlas/services"
)

// Server hält alle Services, die die HTTP-Schicht braucht. Aufgebaut wird er in main.go.
type Server struct {
	Search      *services.SearchService
	Papers      *services.PaperService
	Graph       *services.GraphService
	Cache       *services.ResultCache
	Chat        *services.ChatService
	Auth        *services.AuthService
	Collections *services.CollectionService
	Logger      *zap.Logger
	CORSOrigins string
}

// NewRouter erstellt die gin-Engine mit Middleware und allen Routen.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.Logger))
	router.Use(corsMiddleware(s.CORSOrigins))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rg := router.Group("/api")
	setupPaperRoutes(rg, s)
	setupSearchRoutes(rg, s)
	setupChatRoutes(rg, s)
	setupAuthRoutes(rg, s)
	setupCollectionRoutes(rg, s)
	return router
}
