package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/epic1st/clearinghouse/domain"
	"github.com/epic1st/clearinghouse/logging"
)

// Service issues and verifies bearer tokens for command submitters, and
// gates the demo admin credential with bcrypt, mirroring the teacher's
// auth.Service (development-default secret/hash with a logged warning
// when unconfigured).
type Service struct {
	jwtSecret []byte
	adminHash []byte
	ttl       time.Duration
	log       *logging.Logger
}

// NewService constructs a Service. An empty jwtSecret or adminPasswordHash
// falls back to an insecure development default, logged loudly, matching
// the teacher's auth.NewService behavior.
func NewService(jwtSecret, adminPasswordHash string) *Service {
	log := logging.New("auth")

	secret := []byte(jwtSecret)
	if len(secret) == 0 {
		log.Println("WARNING: no JWT secret configured, using insecure development default")
		secret = []byte("clearinghouse_dev_secret_do_not_use_in_prod")
	}

	var hash []byte
	if adminPasswordHash != "" {
		hash = []byte(adminPasswordHash)
	} else {
		log.Println("WARNING: no admin password hash configured, using insecure development default")
		hash, _ = bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	}

	return &Service{jwtSecret: secret, adminHash: hash, ttl: 24 * time.Hour, log: log}
}

// IssueToken mints a bearer token binding accountId to role ("maker",
// "taker", or "admin").
func (s *Service) IssueToken(accountId domain.AccountId, role string) (string, error) {
	return GenerateToken(accountId, role, s.jwtSecret, s.ttl)
}

// Authenticate validates tokenString and returns the bound claims.
func (s *Service) Authenticate(tokenString string) (*Claims, error) {
	return ValidateToken(tokenString, s.jwtSecret)
}

// VerifyAdmin checks password against the configured admin credential.
func (s *Service) VerifyAdmin(password string) error {
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		s.log.Println("admin authentication failed")
		return errors.New("invalid admin credentials")
	}
	return nil
}
