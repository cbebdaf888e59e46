package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/services"
)

const (
	defaultEdgeLimit    = 20
	maxEdgeLimit        = 100
	defaultHistoryLimit = 50
)

// intQuery liest einen Integer-Query-Parameter; fehlend oder ungültig ergibt def.
func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func edgeLimit(c *gin.Context) int {
	limit := intQuery(c, "limit", defaultEdgeLimit)
	if limit <= 0 {
		limit = defaultEdgeLimit
	}
	if limit > maxEdgeLimit {
		limit = maxEdgeLimit
	}
	return limit
}

func setupPaperRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/papers")

	rg.POST("/search", authOptional(s.Auth), func(c *gin.Context) {
		var req services.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		resp, err := s.Search.Search(c.Request.Context(), req)
		if err != nil {
			respondError(c, s.Logger, err, "search failed")
			return
		}
		if uid := currentUserID(c); uid != 0 {
			if err := s.Search.RecordHistory(c.Request.Context(), uid, req, resp); err != nil {
				requestLog(c, s.Logger).Warn("Could not record search history", zap.Uint("userId", uid), zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	rg.GET("/:paperId", func(c *gin.Context) {
		paper, err := s.Papers.Paper(c.Request.Context(), c.Param("paperId"))
		if err != nil {
			respondError(c, s.Logger, err, "failed to load paper")
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.GET("/:paperId/citations", func(c *gin.Context) {
		papers, err := s.Papers.Citations(c.Request.Context(), c.Param("paperId"), edgeLimit(c))
		if err != nil {
			respondError(c, s.Logger, err, "failed to load citations")
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": papers})
	})

	rg.GET("/:paperId/references", func(c *gin.Context) {
		papers, err := s.Papers.References(c.Request.Context(), c.Param("paperId"), edgeLimit(c))
		if err != nil {
			respondError(c, s.Logger, err, "failed to load references")
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": papers})
	})

	rg.GET("/:paperId/graph", func(c *gin.Context) {
		depth := s.Graph.ClampDepth(intQuery(c, "depth", 1))
		n, err := s.Graph.BuildNeighborhood(c.Request.Context(), c.Param("paperId"), depth)
		if err != nil {
			respondError(c, s.Logger, err, "failed to build graph")
			return
		}
		c.JSON(http.StatusOK, n)
	})
}

func setupSearchRoutes(api *gin.RouterGroup, s *Server) {
	api.GET("/search/history", authRequired(s.Auth), func(c *gin.Context) {
		limit := intQuery(c, "limit", defaultHistoryLimit)
		if limit <= 0 || limit > defaultHistoryLimit {
			limit = defaultHistoryLimit
		}
		history, err := s.Search.ListHistory(c.Request.Context(), currentUserID(c), limit)
		if err != nil {
			respondError(c, s.Logger, err, "failed to load search history")
			return
		}
		if history == nil {
			history = []models.SearchQuery{}
		}
		c.JSON(http.StatusOK, gin.H{"searchHistory": history})
	})

	api.POST("/cache/clear", func(c *gin.Context) {
		n, err := s.Cache.Sweep(c.Request.Context())
		if err != nil {
			respondError(c, s.Logger, err, "failed to clear cache")
			return
		}
		requestLog(c, s.Logger).Info("Expired cache entries removed", zap.Int64("deleted", n))
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	})
}
