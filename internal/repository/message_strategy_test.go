package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"logi-match/internal/domain"
)

type mockDBTX struct {
	lastSQL  string
	lastArgs []any
	execErr  error
	queryErr error
	rows     *fakeRows
}

func (m *mockDBTX) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.lastSQL = sql
	m.lastArgs = args
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockDBTX) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.lastSQL = sql
	m.lastArgs = args
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.rows == nil {
		return nil, errors.New("not implemented")
	}
	return m.rows, nil
}

func (m *mockDBTX) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

// fakeRows entrega filas fijas; nil representa NULL.
type fakeRows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

func newFakeRows(data ...[]any) *fakeRows {
	return &fakeRows{data: data, pos: -1}
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(row[i])
		switch {
		case v.Type().AssignableTo(target.Type()):
			target.Set(v)
		case target.Kind() == reflect.Pointer && v.Type().AssignableTo(target.Type().Elem()):
			p := reflect.New(target.Type().Elem())
			p.Elem().Set(v)
			target.Set(p)
		default:
			return fmt.Errorf("scan: column %d: cannot assign %s to %s", i, v.Type(), target.Type())
		}
	}
	return nil
}

func sampleMessage() domain.Message {
	return domain.Message{
		ChannelID:  "private-chat-A-B",
		UserID:     "A",
		Text:       "hi",
		Timestamp:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		JobContext: &domain.JobContext{JobTitle: "Seoul to Busan"},
	}
}

func TestNormalizedInsert_Args(t *testing.T) {
	db := &mockDBTX{}
	repo := NewPgNormalizedMessageRepository(db)

	if err := repo.Insert(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(db.lastSQL, "INSERT INTO messages") {
		t.Fatalf("unexpected sql: %s", db.lastSQL)
	}
	if len(db.lastArgs) != 6 {
		t.Fatalf("expected 6 args, got %d", len(db.lastArgs))
	}
	if db.lastArgs[2] != nil {
		t.Fatalf("expected nil recipient for empty id, got %v", db.lastArgs[2])
	}
	meta, ok := db.lastArgs[5].(string)
	if !ok || !strings.Contains(meta, `"jobTitle":"Seoul to Busan"`) {
		t.Fatalf("expected serialized job context, got %v", db.lastArgs[5])
	}
}

func TestStoredProcedureInsert_PropagatesError(t *testing.T) {
	db := &mockDBTX{execErr: errors.New("function store_chat_message does not exist")}
	repo := NewPgStoredProcedureMessageRepository(db)

	if err := repo.Insert(context.Background(), sampleMessage()); err == nil {
		t.Fatalf("expected error from missing procedure")
	}
	if !strings.Contains(db.lastSQL, "p_channel_name") {
		t.Fatalf("expected named procedure params, got %s", db.lastSQL)
	}
	if _, err := repo.ListByChannel(context.Background(), "c", 10); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported on read, got %v", err)
	}
}

func TestChatMessagesInsertUnsupported(t *testing.T) {
	repo := NewPgChatMessagesRepository(&mockDBTX{})
	if err := repo.Insert(context.Background(), sampleMessage()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestGenericFallbackInsert_NestsPayload(t *testing.T) {
	db := &mockDBTX{}
	repo := NewPgGenericFallbackRepository(db)

	if err := repo.Insert(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if db.lastArgs[0] != "message" {
		t.Fatalf("expected type discriminator, got %v", db.lastArgs[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(db.lastArgs[4].(string)), &payload); err != nil {
		t.Fatalf("expected json payload, got %v", err)
	}
	if payload["text"] != "hi" || payload["timestamp"] != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestChatDataToMessage(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("nested fields mapped", func(t *testing.T) {
		data := []byte(`{"text":"hello","timestamp":"2024-05-01T10:00:03.120Z","job_context":{"jobTitle":"Cold chain"}}`)
		msg, err := chatDataToMessage("c1", "B", "A", data, created)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg.Text != "hello" || msg.UserID != "B" || msg.RecipientID != "A" || msg.ChannelID != "c1" {
			t.Fatalf("unexpected message: %+v", msg)
		}
		want := time.Date(2024, 5, 1, 10, 0, 3, 120000000, time.UTC)
		if !msg.Timestamp.Equal(want) {
			t.Fatalf("expected payload timestamp, got %v", msg.Timestamp)
		}
		if msg.JobContext == nil || msg.JobContext.JobTitle != "Cold chain" {
			t.Fatalf("expected job context, got %+v", msg.JobContext)
		}
	})

	t.Run("missing timestamp uses created_at", func(t *testing.T) {
		msg, err := chatDataToMessage("c1", "B", "", []byte(`{"text":"x"}`), created)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !msg.Timestamp.Equal(created) || msg.JobContext != nil {
			t.Fatalf("unexpected message: %+v", msg)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := chatDataToMessage("c1", "B", "", []byte(`{`), created); err == nil {
			t.Fatalf("expected decode error")
		}
	})
}

func TestDecodeJobContext(t *testing.T) {
	str := func(s string) *string { return &s }
	cases := []struct {
		name string
		in   *string
		want string
	}{
		{"nil", nil, ""},
		{"empty", str(""), ""},
		{"json null", str("null"), ""},
		{"invalid", str("{bad"), ""},
		{"valid", str(`{"jobTitle":"Night freight"}`), "Night freight"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeJobContext(c.in)
			if c.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || got.JobTitle != c.want {
				t.Fatalf("expected %q, got %+v", c.want, got)
			}
		})
	}
}

func TestNormalizedListByChannel_MapsRows(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	db := &mockDBTX{rows: newFakeRows(
		[]any{"A", "B", "first", time.Date(2024, 5, 1, 19, 0, 0, 0, kst), `{"jobId":"j1","jobTitle":"Seoul to Busan"}`},
		[]any{"B", nil, "second", time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC), nil},
	)}
	repo := NewPgNormalizedMessageRepository(db)

	got, err := repo.ListByChannel(context.Background(), "private-chat-A-B", 20)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(db.lastArgs) != 2 || db.lastArgs[0] != "private-chat-A-B" || db.lastArgs[1] != 20 {
		t.Fatalf("unexpected query args: %v", db.lastArgs)
	}
	if !strings.Contains(db.lastSQL, "FROM messages") {
		t.Fatalf("unexpected sql: %s", db.lastSQL)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}

	first := got[0]
	if first.ChannelID != "private-chat-A-B" || first.UserID != "A" || first.RecipientID != "B" || first.Text != "first" {
		t.Fatalf("unexpected first message: %+v", first)
	}
	if first.Timestamp.Location() != time.UTC || !first.Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected utc timestamp, got %v", first.Timestamp)
	}
	if first.JobContext == nil || first.JobContext.JobID != "j1" || first.JobContext.JobTitle != "Seoul to Busan" {
		t.Fatalf("expected job context from metadata, got %+v", first.JobContext)
	}

	second := got[1]
	if second.RecipientID != "" || second.JobContext != nil || second.Text != "second" {
		t.Fatalf("expected null columns mapped to zero values, got %+v", second)
	}
	if !db.rows.closed {
		t.Fatalf("expected rows closed")
	}
}

func TestChatMessagesListByChannel_MapsRows(t *testing.T) {
	db := &mockDBTX{rows: newFakeRows(
		[]any{"B", "A", "hola", time.Date(2024, 5, 1, 10, 0, 2, 500000000, time.UTC), `{"jobTitle":"Cold chain"}`},
		[]any{"A", nil, "ok", time.Date(2024, 5, 1, 10, 0, 3, 0, time.UTC), "null"},
	)}
	repo := NewPgChatMessagesRepository(db)

	got, err := repo.ListByChannel(context.Background(), "general", 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(db.lastSQL, "FROM chat_messages") || !strings.Contains(db.lastSQL, "WHERE channel = $1") {
		t.Fatalf("unexpected sql: %s", db.lastSQL)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Text != "hola" || got[0].UserID != "B" || got[0].RecipientID != "A" || got[0].ChannelID != "general" {
		t.Fatalf("expected message column mapped to text, got %+v", got[0])
	}
	if !got[0].Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 2, 500000000, time.UTC)) {
		t.Fatalf("expected timestamp column mapped, got %v", got[0].Timestamp)
	}
	if got[0].JobContext == nil || got[0].JobContext.JobTitle != "Cold chain" {
		t.Fatalf("expected job_context mapped, got %+v", got[0].JobContext)
	}
	if got[1].JobContext != nil || got[1].RecipientID != "" {
		t.Fatalf("expected json null job_context ignored, got %+v", got[1])
	}
}

func TestGenericFallbackListByChannel_SkipsCorruptRows(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	db := &mockDBTX{rows: newFakeRows(
		[]any{"A", "B", `{"text":"hi","timestamp":"2024-05-01T10:00:00Z"}`, created},
		[]any{"B", nil, `{broken`, created},
		[]any{"B", "A", `{"text":"yo"}`, created},
	)}
	repo := NewPgGenericFallbackRepository(db)

	got, err := repo.ListByChannel(context.Background(), "private-chat-A-B", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if db.lastArgs[1] != "message" {
		t.Fatalf("expected type filter arg, got %v", db.lastArgs)
	}
	if len(got) != 2 || got[0].Text != "hi" || got[1].Text != "yo" {
		t.Fatalf("expected corrupt row skipped, got %+v", got)
	}
	if !got[1].Timestamp.Equal(created) {
		t.Fatalf("expected created_at fallback, got %v", got[1].Timestamp)
	}
}

func TestListByChannel_PropagatesRowErrors(t *testing.T) {
	rows := newFakeRows()
	rows.err = errors.New("conn reset")
	repo := NewPgNormalizedMessageRepository(&mockDBTX{rows: rows})
	if _, err := repo.ListByChannel(context.Background(), "c", 10); err == nil {
		t.Fatalf("expected rows error")
	}

	missing := NewPgChatMessagesRepository(&mockDBTX{queryErr: errors.New(`relation "chat_messages" does not exist`)})
	if _, err := missing.ListByChannel(context.Background(), "c", 10); err == nil {
		t.Fatalf("expected query error")
	}
}
