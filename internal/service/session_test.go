package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type mockAuthProvider struct {
	session    *domain.Session
	signInErr  error
	signUpErr  error
	signOutErr error

	signedOutTokens []string
}

func (m *mockAuthProvider) SignUp(_ context.Context, _, _, _ string) (*domain.Session, error) {
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	return m.session, nil
}

func (m *mockAuthProvider) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.session, nil
}

func (m *mockAuthProvider) SignOut(_ context.Context, accessToken string) error {
	m.signedOutTokens = append(m.signedOutTokens, accessToken)
	return m.signOutErr
}

const testJWTSecret = "super-secret-signing-key"

func testSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "token-abc",
		RefreshToken: "refresh-xyz",
		ExpiresIn:    3600,
		User:         domain.UserIdentity{ID: "user-1", Nome: "Ana", Email: "ana@evolutie.com.br"},
	}
}

func newSessionService(auth *mockAuthProvider, store *mockCompanyStore) *service.SessionService {
	portfolio := service.NewPortfolioService(store, observability.NewMetrics(), zap.NewNop())
	return service.NewSessionService(auth, portfolio, testJWTSecret, zap.NewNop())
}

func TestLogin_Success(t *testing.T) {
	auth := &mockAuthProvider{session: testSession()}
	store := &mockCompanyStore{companies: []domain.CompanyRow{companyRow("c1", "A")}}
	svc := newSessionService(auth, store)

	session, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@evolutie.com.br",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.User.ID != "user-1" {
		t.Errorf("expected user-1, got %s", session.User.ID)
	}
	if store.listCalls == 0 {
		t.Error("expected portfolio warm-up on login")
	}
}

func TestLogin_GenericFailureMessage(t *testing.T) {
	auth := &mockAuthProvider{signInErr: &domain.ErrUnauthorized{Message: "user not found"}}
	svc := newSessionService(auth, &mockCompanyStore{})

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "desconhecida@evolutie.com.br",
		Password: "whatever",
	})

	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if unauth.Message != "Credenciais inválidas" {
		t.Errorf("expected generic message, got %q", unauth.Message)
	}
}

func TestLogin_EmptyCredentials(t *testing.T) {
	svc := newSessionService(&mockAuthProvider{session: testSession()}, &mockCompanyStore{})

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "", Password: ""})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLogin_WarmUpFailureIsIgnored(t *testing.T) {
	auth := &mockAuthProvider{session: testSession()}
	store := &mockCompanyStore{listErr: errors.New("supabase down")}
	svc := newSessionService(auth, store)

	session, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@evolutie.com.br",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("expected login to succeed despite warm-up failure, got %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc := newSessionService(&mockAuthProvider{session: testSession()}, &mockCompanyStore{})

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Nome:            "Ana",
		Email:           "ana@evolutie.com.br",
		Password:        "secret123",
		ConfirmPassword: "secret124",
	})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegister_PropagatesConflict(t *testing.T) {
	auth := &mockAuthProvider{signUpErr: &domain.ErrConflict{Message: "email já cadastrado"}}
	svc := newSessionService(auth, &mockCompanyStore{})

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Nome:            "Ana",
		Email:           "ana@evolutie.com.br",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})

	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogout_ClearsAndSignsOut(t *testing.T) {
	auth := &mockAuthProvider{session: testSession()}
	store := &mockCompanyStore{companies: []domain.CompanyRow{companyRow("c1", "A")}}

	portfolio := service.NewPortfolioService(store, observability.NewMetrics(), zap.NewNop())
	svc := service.NewSessionService(auth, portfolio, testJWTSecret, zap.NewNop())

	if err := portfolio.Load(context.Background(), "user-1", "initial"); err != nil {
		t.Fatalf("load: %v", err)
	}
	listCallsBefore := store.listCalls

	if err := svc.Logout(context.Background(), "user-1", "token-abc"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(auth.signedOutTokens) != 1 || auth.signedOutTokens[0] != "token-abc" {
		t.Errorf("expected backend sign-out with access token")
	}

	// Snapshot gone: next listing hits the store again.
	if _, err := portfolio.Companies(context.Background(), "user-1", domain.CompanyFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.listCalls != listCallsBefore+1 {
		t.Error("expected snapshot cleared on logout")
	}
}

func signTestToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "user-1",
		"email":         "ana@evolutie.com.br",
		"user_metadata": map[string]any{"nome": "Ana"},
		"exp":           expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidateAccessToken_Valid(t *testing.T) {
	svc := newSessionService(&mockAuthProvider{}, &mockCompanyStore{})

	identity, err := svc.ValidateAccessToken(signTestToken(t, testJWTSecret, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.ID != "user-1" || identity.Nome != "Ana" || identity.Email != "ana@evolutie.com.br" {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newSessionService(&mockAuthProvider{}, &mockCompanyStore{})

	_, err := svc.ValidateAccessToken(signTestToken(t, testJWTSecret, time.Now().Add(-time.Hour)))

	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newSessionService(&mockAuthProvider{}, &mockCompanyStore{})

	_, err := svc.ValidateAccessToken(signTestToken(t, "another-secret", time.Now().Add(time.Hour)))

	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
