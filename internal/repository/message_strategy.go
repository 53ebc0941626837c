package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"logi-match/internal/domain"
)

// ErrUnsupported indica que una estrategia no implementa esa operacion (lectura o escritura).
var ErrUnsupported = errors.New("operation not supported by storage strategy")

// StrategyKind identifica la forma de esquema que atiende una estrategia.
type StrategyKind string

const (
	KindNormalizedTable      StrategyKind = "normalized_table"
	KindStoredProcedure      StrategyKind = "stored_procedure"
	KindChatMessagesTable    StrategyKind = "chat_messages_table"
	KindGenericFallbackTable StrategyKind = "generic_fallback_table"
)

// DBTX es el subconjunto de pgxpool.Pool que usan las estrategias.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MessageStrategy es una forma concreta de persistir y leer mensajes.
// Una estrategia puede devolver ErrUnsupported para la operacion que no atiende.
type MessageStrategy interface {
	Kind() StrategyKind
	Insert(ctx context.Context, msg domain.Message) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
}

// ChannelPreparer la implementan estrategias que pueden preparar el esquema antes de escribir.
type ChannelPreparer interface {
	EnsureChannel(ctx context.Context, channelID string) error
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func encodeJobContext(jc *domain.JobContext) (any, error) {
	if jc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(jc)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// decodeJobContext tolera metadata vacia o invalida: el contexto es opcional.
func decodeJobContext(raw *string) *domain.JobContext {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" || value == "null" {
		return nil
	}
	var jc domain.JobContext
	if err := json.Unmarshal([]byte(value), &jc); err != nil {
		return nil
	}
	if strings.TrimSpace(jc.JobTitle) == "" && strings.TrimSpace(jc.JobID) == "" {
		return nil
	}
	return &jc
}
