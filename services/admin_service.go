package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
)

const (
	AdminRole = "admin"

	jwtClaimRole = "role"

	MsgPasskeyRequired = "Passkey is required."
	MsgInvalidPasskey  = "Invalid passkey."
	MsgLoginSuccess    = "Login successful."
)

// LoginResult is the adminLogin contract: success plus an optional message.
// On success the session token is attached.
type LoginResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type AdminService interface {
	Login(ctx context.Context, passkey string) (LoginResult, error)
	VerifyToken(token string) (jwt.MapClaims, error)
}

type AdminServiceConfig struct {
	Passkey    string
	JWTSecret  []byte
	SessionTTL time.Duration
}

type adminService struct {
	cfg     AdminServiceConfig
	clock   clockwork.Clock
	metrics *metrics.Collectors
	logger  *slog.Logger
}

func NewAdminService(cfg AdminServiceConfig, clock clockwork.Clock, collectors *metrics.Collectors, logger *slog.Logger) AdminService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if collectors == nil {
		collectors = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &adminService{cfg: cfg, clock: clock, metrics: collectors, logger: logger}
}

// Login проверяет passkey. Неверный passkey - это обычный результат, а не ошибка;
// error is returned only when a token cannot be issued.
func (s *adminService) Login(ctx context.Context, passkey string) (LoginResult, error) {
	if passkey == "" {
		s.metrics.AdminLogins.WithLabelValues("empty").Inc()
		return LoginResult{Success: false, Message: MsgPasskeyRequired}, nil
	}
	if subtle.ConstantTimeCompare([]byte(passkey), []byte(s.cfg.Passkey)) != 1 {
		s.metrics.AdminLogins.WithLabelValues("invalid").Inc()
		s.logger.WarnContext(ctx, "Admin login rejected")
		return LoginResult{Success: false, Message: MsgInvalidPasskey}, nil
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.SessionTTL).UTC()
	claims := jwt.MapClaims{
		jwtClaimRole: AdminRole,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTSecret)
	if err != nil {
		s.metrics.AdminLogins.WithLabelValues("error").Inc()
		return LoginResult{}, fmt.Errorf("failed to sign admin token: %w", err)
	}

	s.metrics.AdminLogins.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "Admin logged in", slog.Time("expires_at", expiresAt))
	return LoginResult{Success: true, Message: MsgLoginSuccess, Token: token, ExpiresAt: &expiresAt}, nil
}

func (s *adminService) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// exp проверяется по s.clock.
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if role, _ := claims[jwtClaimRole].(string); role != AdminRole {
		return nil, fmt.Errorf("%w: missing admin role", ErrInvalidToken)
	}
	return claims, nil
}
