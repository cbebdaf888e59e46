package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paper-atlas/models"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userView struct {
	*models.User
	HasAPIKey bool `json:"hasApiKey"`
}

func viewUser(u *models.User) userView {
	return userView{User: u, HasAPIKey: u.HasAPIKey()}
}

func setupAuthRoutes(api *gin.RouterGroup, s *Server) {
	rg := api.Group("/auth")

	rg.POST("/register", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "email and password are required")
			return
		}
		user, token, err := s.Auth.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, s.Logger, err, "registration failed")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token, "user": viewUser(user)})
	})

	rg.POST("/login", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "email and password are required")
			return
		}
		user, token, err := s.Auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, s.Logger, err, "login failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": viewUser(user)})
	})

	// Tokens sind zustandslos; der Client verwirft ihn einfach.
	rg.POST("/logout", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})

	authed := rg.Group("", authRequired(s.Auth))

	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": viewUser(currentUser(c))})
	})

	authed.PUT("/api-key", func(c *gin.Context) {
		var req struct {
			APIKey  string `json:"apiKey"`
			BaseURL string `json:"baseUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.Auth.SetAPIKey(c.Request.Context(), currentUserID(c), req.APIKey, req.BaseURL); err != nil {
			respondError(c, s.Logger, err, "failed to store api key")
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasApiKey": true})
	})

	authed.DELETE("/api-key", func(c *gin.Context) {
		if err := s.Auth.ClearAPIKey(c.Request.Context(), currentUserID(c)); err != nil {
			respondError(c, s.Logger, err, "failed to remove api key")
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasApiKey": false})
	})
}
