package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"logi-match/internal/domain"
	"logi-match/internal/metrics"
	"logi-match/internal/repository"
)

const DefaultHistoryLimit = 50

var (
	// ErrWriteExhausted indica que ninguna estrategia pudo guardar el mensaje.
	ErrWriteExhausted     = errors.New("failed to store message")
	ErrStoreNotConfigured = errors.New("message store not configured")
)

// MessageStore recorre listas ordenadas de estrategias de almacenamiento y se
// detiene en el primer exito. Los errores de esquema no salen de aca.
type MessageStore struct {
	logger  *zap.Logger
	writers []repository.MessageStrategy
	readers []repository.MessageStrategy
}

func NewMessageStore(logger *zap.Logger, writers, readers []repository.MessageStrategy) *MessageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageStore{
		logger:  logger,
		writers: writers,
		readers: readers,
	}
}

// NewPgMessageStore arma las cadenas estandar sobre una misma conexion:
// escritura messages -> store_chat_message -> chat_data,
// lectura messages -> chat_messages -> chat_data.
func NewPgMessageStore(logger *zap.Logger, db repository.DBTX) *MessageStore {
	normalized := repository.NewPgNormalizedMessageRepository(db)
	fallback := repository.NewPgGenericFallbackRepository(db)
	return NewMessageStore(logger,
		[]repository.MessageStrategy{
			normalized,
			repository.NewPgStoredProcedureMessageRepository(db),
			fallback,
		},
		[]repository.MessageStrategy{
			normalized,
			repository.NewPgChatMessagesRepository(db),
			fallback,
		},
	)
}

// Write intenta cada estrategia en orden y devuelve la que persistio el mensaje.
// Cada intento es un unico insert, asi que un fallo no deja estado parcial.
func (s *MessageStore) Write(ctx context.Context, msg domain.Message) (repository.StrategyKind, error) {
	if s == nil || len(s.writers) == 0 {
		return "", ErrStoreNotConfigured
	}

	s.prepare(ctx, msg.ChannelID)

	var errs []error
	for _, strategy := range s.writers {
		kind := strategy.Kind()
		err := strategy.Insert(ctx, msg)
		if err == nil {
			metrics.StoreAttempts.WithLabelValues("write", string(kind), "ok").Inc()
			return kind, nil
		}
		if errors.Is(err, repository.ErrUnsupported) {
			metrics.StoreAttempts.WithLabelValues("write", string(kind), "unsupported").Inc()
			continue
		}
		metrics.StoreAttempts.WithLabelValues("write", string(kind), "error").Inc()
		s.logger.Warn("message write strategy failed, falling back",
			zap.String("strategy", string(kind)),
			zap.String("channel", msg.ChannelID),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", kind, err))
	}

	metrics.WritesExhausted.Inc()
	s.logger.Error("all message write strategies failed",
		zap.String("channel", msg.ChannelID),
		zap.Error(errors.Join(errs...)),
	)
	return "", fmt.Errorf("%w: %w", ErrWriteExhausted, errors.Join(errs...))
}

// Read devuelve el historial del primer esquema que tenga filas. Si ninguno
// responde, el resultado es una lista vacia: la ausencia de historial no es un error.
func (s *MessageStore) Read(ctx context.Context, channelID string, limit int) []domain.Message {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if s == nil {
		return []domain.Message{}
	}

	for _, strategy := range s.readers {
		kind := strategy.Kind()
		messages, err := strategy.ListByChannel(ctx, channelID, limit)
		switch {
		case errors.Is(err, repository.ErrUnsupported):
			metrics.StoreAttempts.WithLabelValues("read", string(kind), "unsupported").Inc()
			continue
		case err != nil:
			metrics.StoreAttempts.WithLabelValues("read", string(kind), "error").Inc()
			s.logger.Warn("message read strategy failed, falling back",
				zap.String("strategy", string(kind)),
				zap.String("channel", channelID),
				zap.Error(err),
			)
			continue
		case len(messages) == 0:
			metrics.StoreAttempts.WithLabelValues("read", string(kind), "empty").Inc()
			continue
		}
		metrics.StoreAttempts.WithLabelValues("read", string(kind), "ok").Inc()
		return messages
	}
	return []domain.Message{}
}

// prepare es best-effort; sin el procedimiento se sigue con los inserts directos.
func (s *MessageStore) prepare(ctx context.Context, channelID string) {
	for _, strategy := range s.writers {
		preparer, ok := strategy.(repository.ChannelPreparer)
		if !ok {
			continue
		}
		if err := preparer.EnsureChannel(ctx, channelID); err != nil {
			s.logger.Debug("ensure chat tables unavailable", zap.String("channel", channelID), zap.Error(err))
		}
	}
}
