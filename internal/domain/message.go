package domain

import (
	"strings"
	"time"
)

// JobContext viaja adjunto al primer mensaje de una conversacion sobre un trabajo.
type JobContext struct {
	JobID    string `json:"jobId,omitempty"`
	JobTitle string `json:"jobTitle"`
}

// Message es la forma canonica de un mensaje de chat, sin importar la tabla de origen.
type Message struct {
	ChannelID   string      `json:"channelId,omitempty"`
	UserID      string      `json:"userId"`
	RecipientID string      `json:"recipientId,omitempty"`
	Text        string      `json:"text"`
	Timestamp   time.Time   `json:"timestamp"`
	JobContext  *JobContext `json:"jobContext,omitempty"`
}

// SameAs aplica la regla de deduplicacion: mismo autor, texto y timestamp.
func (m Message) SameAs(other Message) bool {
	return m.UserID == other.UserID &&
		m.Text == other.Text &&
		m.Timestamp.Equal(other.Timestamp)
}

// Normalize recorta espacios en los campos de identidad y texto.
func (m Message) Normalize() Message {
	m.ChannelID = strings.TrimSpace(m.ChannelID)
	m.UserID = strings.TrimSpace(m.UserID)
	m.RecipientID = strings.TrimSpace(m.RecipientID)
	m.Text = strings.TrimSpace(m.Text)
	if m.JobContext != nil && strings.TrimSpace(m.JobContext.JobTitle) == "" {
		m.JobContext = nil
	}
	return m
}

// MessageTime devuelve el instante actual con la precision que usa el cliente (ms).
func MessageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
