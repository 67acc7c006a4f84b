// Package otp implements phone verification code issuance and checking.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"edumate-api/internal/utils"
)

// defaultExpiry matches the resend window the chat UI shows.
const defaultExpiry = 5 * time.Minute

// CodeStore persists issued codes.
type CodeStore interface {
	Save(ctx context.Context, phone, code string, expiry time.Duration) error
	Verify(ctx context.Context, phone, code string) error
}

// Sender delivers the code to the phone. The default implementation only
// logs; SMS delivery plugs in behind this interface.
type Sender interface {
	Deliver(ctx context.Context, countryCode, phone, code string) error
}

// LogSender writes codes to the application log instead of sending SMS.
// Used in dev and in tests.
type LogSender struct{}

// Deliver logs the code.
func (LogSender) Deliver(_ context.Context, countryCode, phone, code string) error {
	utils.GetLogger().Info("OTP issued",
		zap.String("country_code", countryCode),
		zap.String("phone_suffix", suffix(phone)),
		zap.String("code", code),
	)
	return nil
}

func suffix(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

// Service issues six-digit codes with a per-phone send rate limit.
type Service struct {
	store  CodeStore
	sender Sender
	expiry time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewService creates an OTP service. A nil sender falls back to LogSender.
func NewService(store CodeStore, sender Sender, expiry time.Duration) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Service{
		store:    store,
		sender:   sender,
		expiry:   expiry,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the per-phone limiter, one send per 30 seconds. This
// backs the UI countdown server-side so a client that ignores the
// countdown still cannot spam sends.
func (s *Service) limiter(phone string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[phone]
	if !ok {
		l = rate.NewLimiter(rate.Every(30*time.Second), 1)
		s.limiters[phone] = l
	}
	return l
}

// Send generates a fresh code, stores it and delivers it.
func (s *Service) Send(ctx context.Context, countryCode, phone string) error {
	if !s.limiter(countryCode + phone).Allow() {
		return eris.New("OTP resend not available yet")
	}

	code, err := generateCode()
	if err != nil {
		return eris.Wrap(err, "failed to generate OTP code")
	}

	if err := s.store.Save(ctx, phone, code, s.expiry); err != nil {
		return eris.Wrap(err, "failed to store OTP code")
	}

	if err := s.sender.Deliver(ctx, countryCode, phone, code); err != nil {
		return eris.Wrap(err, "failed to deliver OTP code")
	}
	return nil
}

// Verify checks the submitted code against the stored one.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	return s.store.Verify(ctx, phone, code)
}

// generateCode produces a uniformly random six-digit code.
func generateCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
