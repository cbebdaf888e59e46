package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/services"
)

const (
	headerRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
	ctxUserKey      = "auth_user"
)

// corsMiddleware erlaubt die konfigurierten Browser-Origins ("*" = alle).
func corsMiddleware(origins string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 || (len(list) == 1 && list[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = list
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// requestLogger vergibt eine Request-ID und loggt jeden Request nach Abschluss.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Writer.Header().Set(headerRequestID, reqID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			log.Warn("Request failed", fields...)
			return
		}
		log.Info("Request handled", fields...)
	}
}

// requestLog gibt den Logger mit der Request-ID des aktuellen Requests zurück.
func requestLog(c *gin.Context, log *zap.Logger) *zap.Logger {
	return log.With(zap.String("request_id", c.GetString(ctxRequestID)))
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}

// authRequired validiert den Bearer-Token und legt den Nutzer in den Kontext.
func authRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if errors.Is(err, services.ErrInvalidToken) {
			abortError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if err != nil {
			abortError(c, http.StatusInternalServerError, "authentication failed")
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// authOptional setzt den Nutzer, wenn ein gültiger Token mitkommt; sonst bleibt der Request anonym.
func authOptional(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(ctxUserKey, user)
			}
		}
		c.Next()
	}
}

// currentUser liefert den authentifizierten Nutzer oder nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func currentUserID(c *gin.Context) uint {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}
