package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DevOTP is issued for every request outside production.
const DevOTP = "123456"

type OTPGenerator struct {
	production bool
}

func NewOTPGenerator(production bool) *OTPGenerator {
	return &OTPGenerator{production: production}
}

// Generate returns six decimal digits.
func (g *OTPGenerator) Generate() (string, error) {
	if !g.production {
		return DevOTP, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPValue is the stored form of a code.
func OTPValue(email, code string) string {
	return email + "-" + code
}

const throttleSweepSize = 10000

// OTPThrottle limits how often codes are sent to one address.
type OTPThrottle struct {
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewOTPThrottle allows perMinute sends per address. Zero or less disables it.
func NewOTPThrottle(perMinute int) *OTPThrottle {
	if perMinute <= 0 {
		return &OTPThrottle{limit: rate.Inf}
	}
	return &OTPThrottle{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *OTPThrottle) Allow(email string) bool {
	if t.limit == rate.Inf {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.limiters) >= throttleSweepSize {
		for k, l := range t.limiters {
			if l.Tokens() >= float64(t.burst) {
				delete(t.limiters, k)
			}
		}
	}

	l, ok := t.limiters[email]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[email] = l
	}
	return l.Allow()
}
