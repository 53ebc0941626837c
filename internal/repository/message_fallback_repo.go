package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"logi-match/internal/domain"
)

const chatDataMessageType = "message"

// chatDataPayload es el JSON anidado en la columna data de chat_data.
type chatDataPayload struct {
	Text       string             `json:"text"`
	Timestamp  string             `json:"timestamp,omitempty"`
	JobContext *domain.JobContext `json:"job_context,omitempty"`
}

// PgGenericFallbackRepository usa la tabla generica "chat_data" con discriminador type.
type PgGenericFallbackRepository struct {
	db DBTX
}

func NewPgGenericFallbackRepository(db DBTX) *PgGenericFallbackRepository {
	return &PgGenericFallbackRepository{db: db}
}

func (r *PgGenericFallbackRepository) Kind() StrategyKind {
	return KindGenericFallbackTable
}

func (r *PgGenericFallbackRepository) Insert(ctx context.Context, msg domain.Message) error {
	const query = `
		INSERT INTO chat_data (type, sender_id, recipient_id, channel_name, data)
		VALUES ($1, $2, $3, $4, $5::jsonb)
	`
	data, err := encodeChatData(msg)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		chatDataMessageType,
		msg.UserID,
		nullableString(msg.RecipientID),
		msg.ChannelID,
		data,
	)
	return err
}

func (r *PgGenericFallbackRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT sender_id, recipient_id, data, created_at
		FROM (
			SELECT sender_id::text AS sender_id,
			       recipient_id::text AS recipient_id,
			       data::text AS data,
			       created_at
			FROM chat_data
			WHERE channel_name = $1 AND type = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, channelID, chatDataMessageType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			senderID    string
			recipientID *string
			data        string
			createdAt   time.Time
		)
		if err := rows.Scan(&senderID, &recipientID, &data, &createdAt); err != nil {
			return nil, err
		}
		msg, err := chatDataToMessage(channelID, senderID, derefString(recipientID), []byte(data), createdAt)
		if err != nil {
			// Una fila corrupta no debe esconder el resto del historial.
			continue
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func encodeChatData(msg domain.Message) (string, error) {
	payload := chatDataPayload{
		Text:       msg.Text,
		JobContext: msg.JobContext,
	}
	if !msg.Timestamp.IsZero() {
		payload.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// chatDataToMessage reconcilia data.text / data.timestamp con la forma canonica.
// Sin data.timestamp se usa created_at de la fila.
func chatDataToMessage(channelID, senderID, recipientID string, data []byte, createdAt time.Time) (domain.Message, error) {
	var payload chatDataPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.Message{}, fmt.Errorf("decode chat_data payload: %w", err)
	}
	ts := createdAt.UTC()
	if raw := strings.TrimSpace(payload.Timestamp); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ts = parsed.UTC()
		}
	}
	jc := payload.JobContext
	if jc != nil && strings.TrimSpace(jc.JobTitle) == "" && strings.TrimSpace(jc.JobID) == "" {
		jc = nil
	}
	return domain.Message{
		ChannelID:   channelID,
		UserID:      senderID,
		RecipientID: recipientID,
		Text:        payload.Text,
		Timestamp:   ts,
		JobContext:  jc,
	}, nil
}
