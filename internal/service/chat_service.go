package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"logi-match/internal/broadcast"
	"logi-match/internal/domain"
	"logi-match/internal/metrics"
	"logi-match/internal/repository"
)

const (
	DefaultBroadcastEvent = "chat-message"
	broadcastTimeout      = 3 * time.Second
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrMessageInvalidInput      = errors.New("message invalid input")
	ErrUserMismatch             = errors.New("user id mismatch")
	ErrCounterpartNotFound      = errors.New("counterpart does not exist")
	ErrChannelForbidden         = errors.New("channel forbidden")
)

// ChatService coordina envio, historial y arranque de conversaciones.
type ChatService struct {
	logger      *zap.Logger
	store       *MessageStore
	profiles    repository.ProfileRepository
	broadcaster broadcast.Broadcaster
	limiter     SendRateLimiter
	greetings   GreetingGuard
	event       string
	now         func() time.Time
}

func NewChatService(
	logger *zap.Logger,
	store *MessageStore,
	profiles repository.ProfileRepository,
	broadcaster broadcast.Broadcaster,
	limiter SendRateLimiter,
	event string,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = broadcast.NewNoop()
	}
	if limiter == nil {
		limiter = NewSendRateLimiter(time.Minute, 30)
	}
	if strings.TrimSpace(event) == "" {
		event = DefaultBroadcastEvent
	}
	return &ChatService{
		logger:      logger,
		store:       store,
		profiles:    profiles,
		broadcaster: broadcaster,
		limiter:     limiter,
		greetings:   NewGreetingGuard(),
		event:       event,
		now:         time.Now,
	}
}

// WithGreetingGuard reemplaza la reserva de saludo local, por ejemplo por la de Redis.
func (s *ChatService) WithGreetingGuard(guard GreetingGuard) *ChatService {
	if guard != nil {
		s.greetings = guard
	}
	return s
}

// ConversationStart es el resultado de abrir una conversacion.
type ConversationStart struct {
	ChannelName  string           `json:"channelName"`
	Counterpart  *domain.Profile  `json:"counterpart,omitempty"`
	GreetingSent bool             `json:"greetingSent"`
	Messages     []domain.Message `json:"messages"`
}

// Send persiste el mensaje y, pase lo que pase con la persistencia, dispara el broadcast.
func (s *ChatService) Send(ctx context.Context, authUserID, channelName string, msg domain.Message) (domain.Message, error) {
	if s == nil || s.store == nil {
		return domain.Message{}, ErrChatServiceNotConfigured
	}

	channelName = strings.TrimSpace(channelName)
	msg = msg.Normalize()
	if channelName == "" || msg.Text == "" || msg.UserID == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if strings.TrimSpace(authUserID) != msg.UserID {
		return domain.Message{}, ErrUserMismatch
	}
	if !domain.CanJoin(msg.UserID, channelName) {
		return domain.Message{}, ErrChannelForbidden
	}
	if !s.limiter.Allow(msg.UserID) {
		return domain.Message{}, ErrRateLimited
	}
	if msg.RecipientID != "" {
		if _, err := s.CheckCounterpart(ctx, msg.RecipientID); errors.Is(err, ErrCounterpartNotFound) {
			return domain.Message{}, err
		}
	}

	msg.ChannelID = channelName
	if msg.Timestamp.IsZero() {
		msg.Timestamp = domain.MessageTime(s.now())
	}

	strategy, err := s.store.Write(ctx, msg)
	s.fireBroadcast(channelName, s.event, msg)
	if err != nil {
		return msg, err
	}

	s.logger.Info("message stored",
		zap.String("channel", channelName),
		zap.String("user_id", msg.UserID),
		zap.String("strategy", string(strategy)),
	)
	return msg, nil
}

// History nunca falla por falta de esquema; solo valida el canal y el acceso.
func (s *ChatService) History(ctx context.Context, authUserID, channelName string, limit int) ([]domain.Message, error) {
	if s == nil || s.store == nil {
		return nil, ErrChatServiceNotConfigured
	}
	channelName = strings.TrimSpace(channelName)
	if channelName == "" {
		return nil, ErrMessageInvalidInput
	}
	if !domain.CanJoin(authUserID, channelName) {
		return nil, ErrChannelForbidden
	}
	return s.store.Read(ctx, channelName, limit), nil
}

// Trigger publica un evento sin persistirlo. Un fallo del relay solo se registra.
func (s *ChatService) Trigger(ctx context.Context, authUserID, channelName, event string, msg domain.Message) error {
	if s == nil {
		return ErrChatServiceNotConfigured
	}
	channelName = strings.TrimSpace(channelName)
	event = strings.TrimSpace(event)
	if channelName == "" || event == "" {
		return ErrMessageInvalidInput
	}
	if strings.TrimSpace(authUserID) != strings.TrimSpace(msg.UserID) {
		return ErrUserMismatch
	}
	if !domain.CanJoin(authUserID, channelName) {
		return ErrChannelForbidden
	}
	s.broadcast(ctx, channelName, event, msg)
	return nil
}

// CheckCounterpart resuelve la identidad contra la tabla de perfiles.
func (s *ChatService) CheckCounterpart(ctx context.Context, userID string) (domain.Profile, error) {
	if s == nil || s.profiles == nil {
		return domain.Profile{}, ErrChatServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, ErrCounterpartNotFound
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return domain.Profile{}, ErrCounterpartNotFound
	}
	if err != nil {
		s.logger.Warn("counterpart lookup failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Profile{}, err
	}
	return profile, nil
}

// StartConversation valida la contraparte, deriva el canal y, si hay contexto de
// trabajo y el canal esta vacio, envia un unico saludo antes de cualquier otro mensaje.
func (s *ChatService) StartConversation(ctx context.Context, userID, recipientID string, job *domain.JobContext, limit int) (ConversationStart, error) {
	if s == nil || s.store == nil {
		return ConversationStart{}, ErrChatServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	recipientID = strings.TrimSpace(recipientID)
	if userID == "" {
		return ConversationStart{}, ErrMessageInvalidInput
	}

	start := ConversationStart{ChannelName: domain.ChannelFor(userID, recipientID)}
	if recipientID != "" {
		profile, err := s.CheckCounterpart(ctx, recipientID)
		if err != nil {
			return ConversationStart{}, err
		}
		start.Counterpart = &profile
	}

	start.Messages = s.store.Read(ctx, start.ChannelName, limit)
	if job == nil || strings.TrimSpace(job.JobTitle) == "" || len(start.Messages) > 0 {
		return start, nil
	}

	release, ok := s.greetings.Claim(ctx, start.ChannelName)
	if !ok {
		s.logger.Info("greeting already in progress", zap.String("channel", start.ChannelName))
		return start, nil
	}
	defer release()

	// otro arranque pudo saludar entre la lectura y la reserva
	if current := s.store.Read(ctx, start.ChannelName, limit); len(current) > 0 {
		start.Messages = current
		return start, nil
	}

	greeting, err := s.Send(ctx, userID, start.ChannelName, domain.Message{
		UserID:      userID,
		RecipientID: recipientID,
		Text:        GreetingText(*job),
		JobContext:  job,
	})
	if err != nil {
		return ConversationStart{}, fmt.Errorf("send greeting: %w", err)
	}
	start.GreetingSent = true
	start.Messages = append(start.Messages, greeting)
	return start, nil
}

// GreetingText arma el saludo automatico para una conversacion sobre un trabajo.
func GreetingText(job domain.JobContext) string {
	return fmt.Sprintf("Hello! I'm reaching out about the %q job.", strings.TrimSpace(job.JobTitle))
}

func (s *ChatService) fireBroadcast(channelName, event string, msg domain.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		defer cancel()
		s.broadcast(ctx, channelName, event, msg)
	}()
}

func (s *ChatService) broadcast(ctx context.Context, channelName, event string, msg domain.Message) {
	provider := s.broadcaster.Provider()
	if err := s.broadcaster.Trigger(ctx, channelName, event, msg); err != nil {
		metrics.BroadcastsTotal.WithLabelValues(provider, "error").Inc()
		s.logger.Warn("broadcast failed",
			zap.String("provider", provider),
			zap.String("channel", channelName),
			zap.Error(err),
		)
		return
	}
	metrics.BroadcastsTotal.WithLabelValues(provider, "ok").Inc()
}
