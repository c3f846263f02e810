package auth

import "fmt"

// Identity is a signed-in user as returned by the Identity Toolkit.
type Identity struct {
	UID          string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// Account is the server-side view of an account, from accounts:lookup.
type Account struct {
	UID           string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}

type lookupResponse struct {
	Users []Account `json:"users"`
}

type signInWithIdpResponse struct {
	Identity
	ProviderID string `json:"providerId"`
}

// RestError is the Identity Toolkit error envelope. Message carries codes
// like EMAIL_NOT_FOUND or INVALID_PASSWORD.
type RestError struct {
	Detail struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e RestError) Error() string {
	return fmt.Sprintf("identitytoolkit: %s (%d)", e.Detail.Message, e.Detail.Code)
}
