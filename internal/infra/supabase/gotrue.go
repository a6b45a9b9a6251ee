package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/evolutiehub/hub-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// GoTrue is Supabase's built-in auth. All credential handling lives
// there; this client only exchanges email/password for sessions and
// revokes them.
// ============================================================

// AuthClient wraps the GoTrue HTTP API.
type AuthClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewAuthClient creates a GoTrue client using the public (anon) API key.
func NewAuthClient(httpClient *http.Client, baseURL, apiKey string, logger *zap.Logger) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
	}
}

type gotrueSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Nome string `json:"nome"`
		} `json:"user_metadata"`
	} `json:"user"`
}

func (s *gotrueSession) toDomain() *domain.Session {
	return &domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		User: domain.UserIdentity{
			ID:    s.User.ID,
			Nome:  s.User.UserMetadata.Nome,
			Email: s.User.Email,
		},
	}
}

// SignUp registers a new identity with GoTrue, storing the display name
// as user metadata.
func (a *AuthClient) SignUp(ctx context.Context, email, password, nome string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.SignUp")
	defer span.End()

	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"nome": nome},
	}

	body, status, err := a.do(ctx, "signup", payload, "")
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return nil, &domain.ErrConflict{Message: "email já cadastrado"}
	case status < 200 || status >= 300:
		return nil, a.failure("signup", status, body)
	}

	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	return session.toDomain(), nil
}

// SignInWithPassword exchanges credentials for a session. Wrong password
// and unknown user are indistinguishable on purpose.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.SignInWithPassword")
	defer span.End()

	payload := map[string]any{"email": email, "password": password}

	body, status, err := a.do(ctx, "token?grant_type=password", payload, "")
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, &domain.ErrUnauthorized{Message: "credenciais inválidas"}
	case status < 200 || status >= 300:
		return nil, a.failure("token", status, body)
	}

	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return session.toDomain(), nil
}

// SignOut invalidates the backend session for the given access token.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "GoTrue.SignOut")
	defer span.End()

	body, status, err := a.do(ctx, "logout", nil, accessToken)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && (status < 200 || status >= 300) {
		return a.failure("logout", status, body)
	}
	return nil
}

func (a *AuthClient) do(ctx context.Context, path string, payload any, bearer string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/auth/v1/%s", a.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("gotrue: request failed", zap.String("path", path), zap.Error(err))
		return nil, 0, &domain.ErrUnavailable{Service: "gotrue", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &domain.ErrUnavailable{Service: "gotrue", Err: err}
	}
	return body, resp.StatusCode, nil
}

func (a *AuthClient) failure(path string, status int, body []byte) error {
	a.logger.Warn("gotrue: non-2xx response",
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("body", string(body)),
	)
	if status >= 500 {
		return &domain.ErrUnavailable{Service: "gotrue", Err: fmt.Errorf("status %d", status)}
	}
	return fmt.Errorf("gotrue %s returned status %d: %s", path, status, string(body))
}
