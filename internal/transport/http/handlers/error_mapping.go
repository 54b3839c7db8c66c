package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentora/tutoring-auth/internal/usecase"
)

// errorStatus ties a usecase sentinel to the HTTP response it maps to.
type errorStatus struct {
	err     error
	status  int
	message string
}

// sessionErrorStatuses covers the lifecycle sentinels surfaced by the
// session management endpoints. Anything unmapped falls back to a 500
// with the handler-supplied message.
var sessionErrorStatuses = []errorStatus{
	{usecase.ErrSessionForbidden, http.StatusForbidden, "session not owned by user"},
	{usecase.ErrSessionNotFound, http.StatusNotFound, "session not found"},
	{usecase.ErrSessionAlreadyRevoked, http.StatusConflict, "session already revoked"},
}

func respondSessionError(c *gin.Context, err error, fallbackMessage string) {
	for _, m := range sessionErrorStatuses {
		if errors.Is(err, m.err) {
			c.JSON(m.status, NewErrorResponse(c, m.message))
			return
		}
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallbackMessage))
}
