package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GreetingGuard reserva un canal mientras se decide y envia el saludo.
// Claim no bloquea: devuelve ok=false si otro arranque ya tiene el canal.
type GreetingGuard interface {
	Claim(ctx context.Context, channelName string) (release func(), ok bool)
}

type memoryGreetingGuard struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewGreetingGuard serializa el saludo dentro de un proceso.
func NewGreetingGuard() GreetingGuard {
	return &memoryGreetingGuard{claimed: make(map[string]struct{})}
}

func (g *memoryGreetingGuard) Claim(_ context.Context, channelName string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.claimed[channelName]; busy {
		return func() {}, false
	}
	g.claimed[channelName] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.claimed, channelName)
			g.mu.Unlock()
		})
	}, true
}

// solo borra la llave si sigue siendo nuestra
const redisGreetingReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	redisGreetingKeyPrefix = "chat:greeting:"
	redisGreetingTTL       = 30 * time.Second
)

type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisGreetingGuard struct {
	client   redisLocker
	ttl      time.Duration
	fallback GreetingGuard
}

// NewRedisGreetingGuard comparte la reserva entre instancias. Si Redis falla
// cae al guard local para no bloquear el arranque.
func NewRedisGreetingGuard(client *redis.Client) GreetingGuard {
	if client == nil {
		return NewGreetingGuard()
	}
	return &redisGreetingGuard{client: client, ttl: redisGreetingTTL, fallback: NewGreetingGuard()}
}

func (g *redisGreetingGuard) Claim(ctx context.Context, channelName string) (func(), bool) {
	key := redisGreetingKeyPrefix + channelName
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return g.fallback.Claim(ctx, channelName)
	}
	if !ok {
		return func() {}, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			_ = g.client.Eval(releaseCtx, redisGreetingReleaseScript, []string{key}, token).Err()
		})
	}, true
}
