package repository

import (
	"context"

	"logi-match/internal/domain"
)

// PgStoredProcedureMessageRepository escribe via store_chat_message, que corre con
// privilegios elevados y no pasa por las politicas de fila.
type PgStoredProcedureMessageRepository struct {
	db DBTX
}

func NewPgStoredProcedureMessageRepository(db DBTX) *PgStoredProcedureMessageRepository {
	return &PgStoredProcedureMessageRepository{db: db}
}

func (r *PgStoredProcedureMessageRepository) Kind() StrategyKind {
	return KindStoredProcedure
}

func (r *PgStoredProcedureMessageRepository) Insert(ctx context.Context, msg domain.Message) error {
	const query = `
		SELECT store_chat_message(
			p_channel_name => $1,
			p_sender_id    => $2,
			p_recipient_id => $3,
			p_message      => $4,
			p_timestamp    => $5,
			p_metadata     => $6
		)
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

func (r *PgStoredProcedureMessageRepository) ListByChannel(context.Context, string, int) ([]domain.Message, error) {
	return nil, ErrUnsupported
}

// EnsureChannel invoca ensure_chat_tables; en proyectos sin migraciones puede no existir.
func (r *PgStoredProcedureMessageRepository) EnsureChannel(ctx context.Context, channelID string) error {
	const query = `SELECT ensure_chat_tables(channel_name => $1)`
	_, err := r.db.Exec(ctx, query, channelID)
	return err
}
