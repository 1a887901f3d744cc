// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"soko/internal/http/middleware"
	"soko/internal/types"
	"soko/internal/workflow"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps the workflow error taxonomy to HTTP codes. Service
// messages propagate verbatim; anything outside the taxonomy is a 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, workflow.ErrBadRequest),
		errors.Is(err, workflow.ErrInvalidTransition):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// actorID returns the authenticated actor injected by the auth middleware.
func actorID(c *gin.Context) types.ID {
	return types.ID(c.GetString(middleware.CtxActorID))
}
