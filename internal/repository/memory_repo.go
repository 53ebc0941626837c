package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"logi-match/internal/domain"
)

// MemoryMessageRepository guarda mensajes en memoria. Sirve para desarrollo
// local sin base de datos y para pruebas de punta a punta.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string][]domain.Message)}
}

func (r *MemoryMessageRepository) Kind() StrategyKind {
	return KindNormalizedTable
}

func (r *MemoryMessageRepository) Insert(_ context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ChannelID] = append(r.messages[msg.ChannelID], msg)
	return nil
}

func (r *MemoryMessageRepository) ListByChannel(_ context.Context, channelID string, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[channelID]
	out := make([]domain.Message, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// MemoryProfileRepository resuelve perfiles cargados al iniciar.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewMemoryProfileRepository(profiles ...domain.Profile) *MemoryProfileRepository {
	r := &MemoryProfileRepository{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		r.Put(p)
	}
	return r
}

func (r *MemoryProfileRepository) Put(profile domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[strings.TrimSpace(profile.UserID)] = profile
}

func (r *MemoryProfileRepository) GetByUserID(_ context.Context, userID string) (domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[strings.TrimSpace(userID)]
	if !ok {
		return domain.Profile{}, ErrProfileNotFound
	}
	return p, nil
}
