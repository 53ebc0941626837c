package service

import (
	"context"
	"errors"
	"sync"

	"logi-match/internal/domain"
	"logi-match/internal/repository"
)

var errRelationMissing = errors.New(`relation "messages" does not exist`)

// mockStrategy simula una forma de esquema que puede estar o no provisionada.
type mockStrategy struct {
	kind             repository.StrategyKind
	mu               sync.Mutex
	insertErr        error
	listErr          error
	unsupportedWrite bool
	unsupportedRead  bool
	rows             []domain.Message
	inserts          int
	ensured          []string
	ensureErr        error
}

func newMockStrategy(kind repository.StrategyKind) *mockStrategy {
	return &mockStrategy{kind: kind}
}

func (m *mockStrategy) Kind() repository.StrategyKind { return m.kind }

func (m *mockStrategy) Insert(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsupportedWrite {
		return repository.ErrUnsupported
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts++
	m.rows = append(m.rows, msg)
	return nil
}

func (m *mockStrategy) ListByChannel(_ context.Context, channelID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsupportedRead {
		return nil, repository.ErrUnsupported
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Message
	for _, r := range m.rows {
		if r.ChannelID == channelID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockStrategy) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

// preparingStrategy agrega EnsureChannel como el procedimiento real.
type preparingStrategy struct {
	*mockStrategy
}

func (p preparingStrategy) EnsureChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensured = append(p.ensured, channelID)
	return p.ensureErr
}

type mockProfiles struct {
	profiles map[string]domain.Profile
	err      error
}

func (m *mockProfiles) GetByUserID(_ context.Context, userID string) (domain.Profile, error) {
	if m.err != nil {
		return domain.Profile{}, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, repository.ErrProfileNotFound
	}
	return p, nil
}

type triggered struct {
	channel string
	event   string
	payload any
}

type mockBroadcaster struct {
	err   error
	calls chan triggered
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{calls: make(chan triggered, 16)}
}

func (m *mockBroadcaster) Provider() string { return "mock" }

func (m *mockBroadcaster) Trigger(_ context.Context, channel, event string, payload any) error {
	m.calls <- triggered{channel: channel, event: event, payload: payload}
	return m.err
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

// chain devuelve las tres formas de esquema con la cadena estandar.
func chain() (normalized, procedure, chatMessages, fallback *mockStrategy) {
	normalized = newMockStrategy(repository.KindNormalizedTable)
	procedure = newMockStrategy(repository.KindStoredProcedure)
	procedure.unsupportedRead = true
	chatMessages = newMockStrategy(repository.KindChatMessagesTable)
	chatMessages.unsupportedWrite = true
	fallback = newMockStrategy(repository.KindGenericFallbackTable)
	return
}

func storeFor(normalized, procedure, chatMessages, fallback *mockStrategy) *MessageStore {
	return NewMessageStore(nil,
		[]repository.MessageStrategy{normalized, procedure, fallback},
		[]repository.MessageStrategy{normalized, chatMessages, fallback},
	)
}
