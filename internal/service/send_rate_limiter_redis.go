package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisSendAllowScript aplica una ventana deslizante sobre un sorted set:
// poda lo viejo, cuenta y solo registra el envio si queda cupo.
// Devuelve 1 si se permite y 0 si no.
const redisSendAllowScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= limit then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`

const redisSendKeyPrefix = "chat:send:rl:"

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisSendRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedisSendRateLimiter comparte el conteo de envios entre instancias via Redis.
func NewRedisSendRateLimiter(client *redis.Client, window time.Duration, max int) SendRateLimiter {
	if client == nil {
		return nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisSendRateLimiter{client: client, window: window, max: max, now: time.Now}
}

// Allow falla abierto si Redis no responde: el chat no se corta por el limitador.
func (l *redisSendRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	allowed, err := l.client.Eval(ctx, redisSendAllowScript,
		[]string{redisSendKeyPrefix + key},
		l.now().UnixMilli(), l.window.Milliseconds(), l.max, uuid.NewString(),
	).Int()
	if err != nil {
		return true
	}
	return allowed == 1
}
