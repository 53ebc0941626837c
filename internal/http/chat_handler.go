package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logi-match/internal/broadcast"
	"logi-match/internal/domain"
	"logi-match/internal/service"
)

const maxHistoryLimit = 500

// EventSubscriber entrega eventos publicados en un canal.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan broadcast.Event, error)
}

// ChatHandler expone envio, historial, arranque, trigger y stream de mensajes.
type ChatHandler struct {
	logger       *zap.Logger
	chat         *service.ChatService
	subscriber   EventSubscriber
	historyLimit int
}

func NewChatHandler(logger *zap.Logger, chat *service.ChatService, subscriber EventSubscriber, historyLimit int) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = service.DefaultHistoryLimit
	}
	return &ChatHandler{
		logger:       logger,
		chat:         chat,
		subscriber:   subscriber,
		historyLimit: historyLimit,
	}
}

type messagePayload struct {
	Text        string             `json:"text"`
	UserID      string             `json:"userId"`
	RecipientID string             `json:"recipientId"`
	Timestamp   string             `json:"timestamp"`
	JobContext  *domain.JobContext `json:"jobContext"`
}

func (p messagePayload) toDomain() (domain.Message, error) {
	msg := domain.Message{
		Text:        p.Text,
		UserID:      p.UserID,
		RecipientID: p.RecipientID,
		JobContext:  p.JobContext,
	}
	if ts := strings.TrimSpace(p.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return domain.Message{}, err
		}
		msg.Timestamp = domain.MessageTime(parsed)
	}
	return msg, nil
}

// Send maneja POST /api/chat/send.
func (h *ChatHandler) Send(c *gin.Context) {
	var req struct {
		ChannelName string         `json:"channelName"`
		Message     messagePayload `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}
	msg, err := req.Message.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid timestamp"})
		return
	}

	stored, err := h.chat.Send(c.Request.Context(), authUserID(c), req.ChannelName, msg)
	if err != nil {
		h.writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": stored})
}

// History maneja GET /api/chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	channel := strings.TrimSpace(c.Query("channelName"))
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Channel name is required"})
		return
	}
	messages, err := h.chat.History(c.Request.Context(), authUserID(c), channel, h.parseLimit(c.Query("limit")))
	if err != nil {
		h.writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// Start maneja POST /api/chat/start: valida contraparte, deriva canal y saluda si corresponde.
func (h *ChatHandler) Start(c *gin.Context) {
	var req struct {
		RecipientID string             `json:"recipientId"`
		JobContext  *domain.JobContext `json:"jobContext"`
		Limit       int                `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid start request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.historyLimit
	}

	start, err := h.chat.StartConversation(c.Request.Context(), authUserID(c), req.RecipientID, req.JobContext, min(limit, maxHistoryLimit))
	if err != nil {
		h.writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"channelName":  start.ChannelName,
		"counterpart":  start.Counterpart,
		"greetingSent": start.GreetingSent,
		"messages":     start.Messages,
	})
}

// Trigger maneja POST /api/pusher/trigger.
func (h *ChatHandler) Trigger(c *gin.Context) {
	var req struct {
		ChannelName string         `json:"channelName"`
		EventName   string         `json:"eventName"`
		Message     messagePayload `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}
	msg, err := req.Message.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid timestamp"})
		return
	}
	if err := h.chat.Trigger(c.Request.Context(), authUserID(c), req.ChannelName, req.EventName, msg); err != nil {
		h.writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stream maneja GET /api/chat/stream como server-sent events.
func (h *ChatHandler) Stream(c *gin.Context) {
	channel := strings.TrimSpace(c.Query("channelName"))
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Channel name is required"})
		return
	}
	if !domain.CanJoin(authUserID(c), channel) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden"})
		return
	}
	if h.subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Streaming not available"})
		return
	}

	events, err := h.subscriber.Subscribe(c.Request.Context(), channel)
	if err != nil {
		h.logger.Warn("stream subscribe failed", zap.String("channel", channel), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Streaming not available"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Event, string(ev.Data))
			return true
		}
	})
}

func (h *ChatHandler) parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return h.historyLimit
	}
	return min(limit, maxHistoryLimit)
}

func (h *ChatHandler) writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMessageInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Channel name and message text are required"})
	case errors.Is(err, service.ErrUserMismatch):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "User ID mismatch"})
	case errors.Is(err, service.ErrChannelForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden"})
	case errors.Is(err, service.ErrCounterpartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many messages"})
	case errors.Is(err, service.ErrWriteExhausted):
		h.logger.Error("store message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store message"})
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
