package service

import (
	"context"
	"fmt"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

// SessionService handles register, login and logout by delegating to the
// auth backend. No credentials are stored or verified locally.
type SessionService struct {
	auth      port.AuthProvider
	portfolio *PortfolioService
	jwtSecret []byte
	logger    *zap.Logger
}

// NewSessionService creates a new session service. jwtSecret is the shared
// secret the auth backend signs access tokens with.
func NewSessionService(auth port.AuthProvider, portfolio *PortfolioService, jwtSecret string, logger *zap.Logger) *SessionService {
	return &SessionService{
		auth:      auth,
		portfolio: portfolio,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// Register creates a new staff account. Unlike login, registration
// failures surface in full so the operator can correct the form.
func (s *SessionService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Register")
	defer span.End()

	if req.Password != req.ConfirmPassword {
		return nil, &domain.ErrValidation{Field: "confirmPassword", Message: "as senhas não coincidem"}
	}

	session, err := s.auth.SignUp(ctx, req.Email, req.Password, req.Nome)
	if err != nil {
		s.logger.Warn("session: registration failed", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("session: user registered", zap.String("user_id", session.User.ID))
	return session, nil
}

// Login exchanges credentials for a session. Every credential failure
// comes back as the same generic message: whether the email exists is
// never revealed. On success the portfolio is warmed in the background
// of the request; a warm-up failure is logged and ignored.
func (s *SessionService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Login")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "body", Message: "email e senha são obrigatórios"}
	}

	session, err := s.auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("session: login rejected", zap.Error(err))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	if err := s.portfolio.Load(ctx, session.User.ID, "login"); err != nil {
		s.logger.Warn("session: portfolio warm-up failed",
			zap.String("user_id", session.User.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("session: user logged in", zap.String("user_id", session.User.ID))
	return session, nil
}

// Logout drops the local portfolio snapshot and revokes the backend
// session.
func (s *SessionService) Logout(ctx context.Context, userID, accessToken string) error {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Logout")
	defer span.End()

	s.portfolio.Clear(userID)

	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("session: backend sign-out failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// accessClaims are the claims of an auth-backend access token.
type accessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// ValidateAccessToken verifies an access token's HS256 signature and
// expiry and returns the identity it carries.
func (s *SessionService) ValidateAccessToken(tokenString string) (*domain.UserIdentity, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "token inválido ou expirado"}
	}

	nome := ""
	if v, ok := claims.UserMetadata["nome"].(string); ok {
		nome = v
	}
	return &domain.UserIdentity{
		ID:    claims.Subject,
		Nome:  nome,
		Email: claims.Email,
	}, nil
}
