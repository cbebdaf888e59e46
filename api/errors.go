package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-atlas/providers"
	"paper-atlas/services"
	"paper-atlas/storage"
)

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// respondError bildet Domain-Fehler auf HTTP-Status ab. Unbekannte Fehler werden
// geloggt und mit fallback als 500 beantwortet.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		abortError(c, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, services.ErrQueryRequired):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrCredentialRequired):
		abortError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, providers.ErrNotFound):
		abortError(c, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		abortError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrInvalidLogin):
		abortError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		abortError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExportDisabled):
		abortError(c, http.StatusServiceUnavailable, err.Error())
	default:
		_ = c.Error(err)
		requestLog(c, log).Error(fallback, zap.Error(err))
		abortError(c, http.StatusInternalServerError, fallback)
	}
}
