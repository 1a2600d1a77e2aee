package auth

import (
	"time"

	"agrofin/internal/config"
)

// NewTokenServiceAt returns a TokenService whose clock is fixed to now.
func NewTokenServiceAt(cfg config.JWTConfig, now time.Time) TokenService {
	return &tokenService{cfg: cfg, now: func() time.Time { return now }}
}
