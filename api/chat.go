package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/providers/openai"
)

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abortError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func setupChatRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/chat", authRequired(s.Auth))

	rg.POST("/session", func(c *gin.Context) {
		var req struct {
			PaperID string `json:"paperId" binding:"required"`
			Title   string `json:"title"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "paperId is required")
			return
		}
		session, err := s.Chat.CreateSession(c.Request.Context(), currentUserID(c), req.PaperID, req.Title)
		if err != nil {
			respondError(c, s.Logger, err, "failed to create chat session")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session": session})
	})

	rg.GET("/sessions", func(c *gin.Context) {
		sessions, err := s.Chat.ListSessions(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, s.Logger, err, "failed to load chat sessions")
			return
		}
		if sessions == nil {
			sessions = []models.ChatSession{}
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	})

	rg.GET("/session/:id/messages", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		msgs, err := s.Chat.Messages(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, s.Logger, err, "failed to load messages")
			return
		}
		if msgs == nil {
			msgs = []models.ChatMessage{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	})

	rg.POST("/session/:id/message", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		msg, err := s.Chat.SendMessage(c.Request.Context(), currentUserID(c), id, req.Content)
		var upErr *openai.UpstreamError
		if errors.As(err, &upErr) {
			requestLog(c, s.Logger).Error("Completion endpoint rejected request",
				zap.Int("status", upErr.Status), zap.String("message", upErr.Message))
			abortError(c, http.StatusInternalServerError, "failed to get AI response")
			return
		}
		if err != nil {
			respondError(c, s.Logger, err, "failed to get AI response")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	})
}
