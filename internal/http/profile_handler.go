package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logi-match/internal/service"
)

// ProfileHandler resuelve la existencia de la contraparte de una conversacion.
type ProfileHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

func NewProfileHandler(logger *zap.Logger, chat *service.ChatService) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{logger: logger, chat: chat}
}

// GetUser maneja GET /api/users/:id.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	profile, err := h.chat.CheckCounterpart(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrCounterpartNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}
