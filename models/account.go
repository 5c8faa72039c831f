package models

// Profile is the signed-in user as returned by GET /auth/me
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials are the password-login form fields
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest is the POST /auth/signup body
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the PUT /auth/me/update body.
// An empty password leaves it unchanged and is omitted from the request.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

// TokenResponse is returned by POST /auth/token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	Email       string `json:"email,omitempty"`
}
