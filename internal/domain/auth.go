package domain

// UserIdentity is the authenticated staff account. Identity is sourced
// entirely from the auth backend; no credentials are stored here.
type UserIdentity struct {
	ID    string `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// Session is an authenticated backend session as issued by the auth
// provider.
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	User         UserIdentity `json:"user"`
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest carries sign-up fields. The password confirmation is
// checked in this service before any call reaches the auth backend.
type RegisterRequest struct {
	Nome            string `json:"nome" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}
