package auth

import (
	"time"

	"github.com/vesta-dapp/vesta_ledger/internal/accounts"
	"github.com/vesta-dapp/vesta_ledger/internal/config"
)

// sessionTTL bounds how long a caller address stays bound to a token.
const sessionTTL = time.Hour

// Service issues session tokens binding a caller to a ledger address.
type Service struct {
	cfg config.Config
}

// NewService builds an auth service.
func NewService(cfg config.Config) *Service {
	return &Service{cfg: cfg}
}

// Session is the issued token plus its validity window.
type Session struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login issues a session token for an authenticated account. Claims carry
// only the address; every mutating endpoint derives the caller from it.
func (s *Service) Login(account accounts.Account) (Session, error) {
	now := time.Now()
	claims := map[string]any{
		"sub": account.Address.String(),
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	}
	signed, err := SignHS256(claims, []byte(s.cfg.JWTSecret))
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: signed, ExpiresIn: int64(sessionTTL.Seconds())}, nil
}
