package repository

import (
	"context"
	"time"

	"logi-match/internal/domain"
)

// PgChatMessagesRepository lee la tabla heredada "chat_messages". Solo lectura.
type PgChatMessagesRepository struct {
	db DBTX
}

func NewPgChatMessagesRepository(db DBTX) *PgChatMessagesRepository {
	return &PgChatMessagesRepository{db: db}
}

func (r *PgChatMessagesRepository) Kind() StrategyKind {
	return KindChatMessagesTable
}

func (r *PgChatMessagesRepository) Insert(context.Context, domain.Message) error {
	return ErrUnsupported
}

func (r *PgChatMessagesRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT sender_id, recipient_id, message, ts, job_context
		FROM (
			SELECT sender_id::text AS sender_id,
			       recipient_id::text AS recipient_id,
			       message,
			       "timestamp"::timestamptz AS ts,
			       job_context::text AS job_context
			FROM chat_messages
			WHERE channel = $1
			ORDER BY "timestamp" DESC
			LIMIT $2
		) recent
		ORDER BY ts ASC
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
			ts          time.Time
			jobContext  *string
		)
		if err := rows.Scan(&msg.UserID, &recipientID, &msg.Text, &ts, &jobContext); err != nil {
			return nil, err
		}
		msg.ChannelID = channelID
		msg.RecipientID = derefString(recipientID)
		msg.Timestamp = ts.UTC()
		msg.JobContext = decodeJobContext(jobContext)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
