package model

import "time"

// AdminBinding records that a principal presented a valid admin token and was
// granted the admin role. Bindings are permanent until removed by an operator.
type AdminBinding struct {
	Principal string    `json:"principal"`
	BoundAt   time.Time `json:"bound_at"`
}

// AuthorizeRequest carries the admin token presented by a caller.
type AuthorizeRequest struct {
	Token string `json:"token"`
}

// AuthorizeResponse reports whether the caller is now bound to the admin role.
type AuthorizeResponse struct {
	Authorized bool `json:"authorized"`
}

// AdminStatusResponse reports whether the caller is recognised as an admin.
type AdminStatusResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// IdentitySessionRequest asks the development identity provider for a token.
type IdentitySessionRequest struct {
	Principal string `json:"principal"`
}

// IdentitySessionResponse carries an issued identity token.
type IdentitySessionResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Principal string `json:"principal"`
}
