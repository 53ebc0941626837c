package repository

import (
	"context"
	"time"

	"logi-match/internal/domain"
)

// PgNormalizedMessageRepository usa la tabla "messages" con columnas normalizadas.
type PgNormalizedMessageRepository struct {
	db DBTX
}

func NewPgNormalizedMessageRepository(db DBTX) *PgNormalizedMessageRepository {
	return &PgNormalizedMessageRepository{db: db}
}

func (r *PgNormalizedMessageRepository) Kind() StrategyKind {
	return KindNormalizedTable
}

func (r *PgNormalizedMessageRepository) Insert(ctx context.Context, msg domain.Message) error {
	const query = `
		INSERT INTO messages (channel_id, sender_id, recipient_id, content, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	metadata, err := encodeJobContext(msg.JobContext)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		msg.ChannelID,
		msg.UserID,
		nullableString(msg.RecipientID),
		msg.Text,
		msg.Timestamp,
		metadata,
	)
	return err
}

// ListByChannel devuelve la ventana mas reciente de mensajes en orden ascendente.
func (r *PgNormalizedMessageRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT sender_id, recipient_id, content, created_at, metadata
		FROM (
			SELECT sender_id::text AS sender_id,
			       recipient_id::text AS recipient_id,
			       content,
			       created_at,
			       metadata::text AS metadata
			FROM messages
			WHERE channel_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			msg         domain.Message
			recipientID *string
			createdAt   time.Time
			metadata    *string
		)
		if err := rows.Scan(&msg.UserID, &recipientID, &msg.Text, &createdAt, &metadata); err != nil {
			return nil, err
		}
		msg.ChannelID = channelID
		msg.RecipientID = derefString(recipientID)
		msg.Timestamp = createdAt.UTC()
		msg.JobContext = decodeJobContext(metadata)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
