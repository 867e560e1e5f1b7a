package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/utils"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	if verrs, ok := utils.AsValidation(err); ok {
		utils.ValidationFailed(c, verrs)
		return
	}

	var ext *utils.ExternalServiceError
	switch {
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, utils.ErrUnauthorized):
		utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, utils.ErrForbidden):
		utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, utils.ErrConflict):
		utils.Error(c, http.StatusConflict, "CONFLICT", "Resource is in use or already exists")
	case errors.As(err, &ext):
		log.Warn().Err(err).Str("service", ext.Service).Msg("External service failed")
		utils.Error(c, http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", ext.Service+" is unavailable")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// paramID reads a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, utils.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter. Malformed values are
// collected into errs.
func queryInt(c *gin.Context, key string, errs *utils.ValidationErrors) *int {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, "must be an integer")
		return nil
	}
	return &v
}

func invalidBody(c *gin.Context) {
	utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
}
