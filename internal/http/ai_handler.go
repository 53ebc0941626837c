package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logi-match/internal/service"
)

// AIHandler atiende preguntas al asistente del sector transporte.
type AIHandler struct {
	logger *zap.Logger
	ask    *service.AskService
}

func NewAIHandler(logger *zap.Logger, ask *service.AskService) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{logger: logger, ask: ask}
}

// Ask maneja POST /api/ai/ask.
func (h *AIHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	answer, err := h.ask.Ask(c.Request.Context(), req.Question)
	switch {
	case errors.Is(err, service.ErrQuestionEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
	case errors.Is(err, service.ErrAskServiceNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ai not configured"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not generate answer"})
	default:
		c.JSON(http.StatusOK, answer)
	}
}
