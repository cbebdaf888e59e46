package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paper-atlas/models"
)

func setupCollectionRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/collections")

	// öffentliche Sammlungen sind auch ohne Login lesbar
	rg.GET("/:id", authOptional(s.Auth), func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		detail, err := s.Collections.Get(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, s.Logger, err, "failed to load collection")
			return
		}
		c.JSON(http.StatusOK, gin.H{"collection": detail})
	})

	authed := rg.Group("", authRequired(s.Auth))

	authed.POST("", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			IsPublic    bool   `json:"isPublic"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		col, err := s.Collections.Create(c.Request.Context(), currentUserID(c), req.Name, req.Description, req.IsPublic)
		if err != nil {
			respondError(c, s.Logger, err, "failed to create collection")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"collection": col})
	})

	authed.GET("", func(c *gin.Context) {
		cols, err := s.Collections.List(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, s.Logger, err, "failed to load collections")
			return
		}
		if cols == nil {
			cols = []models.Collection{}
		}
		c.JSON(http.StatusOK, gin.H{"collections": cols})
	})

	authed.POST("/:id/papers", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req struct {
			PaperID string `json:"paperId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.Collections.AddPaper(c.Request.Context(), currentUserID(c), id, req.PaperID); err != nil {
			respondError(c, s.Logger, err, "failed to add paper")
			return
		}
		c.Status(http.StatusNoContent)
	})

	authed.DELETE("/:id/papers/:paperId", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := s.Collections.RemovePaper(c.Request.Context(), currentUserID(c), id, c.Param("paperId")); err != nil {
			respondError(c, s.Logger, err, "failed to remove paper")
			return
		}
		c.Status(http.StatusNoContent)
	})

	authed.POST("/:id/export", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		link, err := s.Collections.Export(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, s.Logger, err, "export failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": link})
	})
}
