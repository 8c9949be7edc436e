package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/procurehub/procurehub/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyLoginEmail = "login:email:%s"
	keyLoginAddr  = "login:addr:%s"
)

// LoginLimiter throttles credential exchanges per email and per client
// address. A nil limiter (rate limiting disabled) allows everything.
type LoginLimiter struct {
	enabled bool

	bucket *TokenBucket

	emailRate  float64
	emailBurst int
	addrRate   float64
	addrBurst  int
}

func NewLoginLimiter(cfg config.Config) (*LoginLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.LoginRate <= 0 || cfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}
	if cfg.LoginIPRate <= 0 || cfg.LoginIPBurst <= 0 {
		return nil, errors.New("login address rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &LoginLimiter{
		enabled:    true,
		bucket:     NewTokenBucket(client),
		emailRate:  cfg.LoginRate,
		emailBurst: cfg.LoginBurst,
		addrRate:   cfg.LoginIPRate,
		addrBurst:  cfg.LoginIPBurst,
	}, nil
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowEmail gates attempts against one account, defeating password guessing
// spread across many source addresses.
func (l *LoginLimiter) AllowEmail(ctx context.Context, email string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyLoginEmail, strings.ToLower(strings.TrimSpace(email)))
	return l.bucket.Allow(ctx, key, l.emailRate, l.emailBurst)
}

// AllowAddr gates attempts from one client address.
func (l *LoginLimiter) AllowAddr(ctx context.Context, remoteAddr string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyLoginAddr, strings.TrimSpace(remoteAddr))
	return l.bucket.Allow(ctx, key, l.addrRate, l.addrBurst)
}
