package validator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jwt"
	middleware "github.com/oapi-codegen/gin-middleware"
)

type key string

const identityKey key = "identity"

// Identity is the verified caller, extracted from a Firebase ID token.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

var (
	ErrNoAuthHeader      = errors.New("Authorization header is missing")
	ErrInvalidAuthHeader = errors.New("Authorization header is malformed")
)

// Google rotates the securetoken signing keys; AutoRefresh keeps a cached
// set honoring the response cache headers.
const jwksURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

type Verifier struct {
	ar        *jwk.AutoRefresh
	projectID string
}

func NewVerifier(ctx context.Context, projectID string) *Verifier {
	ar := jwk.NewAutoRefresh(ctx)
	ar.Configure(jwksURL, jwk.WithMinRefreshInterval(time.Hour))
	return &Verifier{
		ar:        ar,
		projectID: projectID,
	}
}

// Verify checks the signature and the issuer/audience claims of a Firebase
// ID token and returns the identity it carries.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	keys, err := v.ar.Fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	tok, err := jwt.ParseString(raw, jwt.WithKeySet(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}
	if err := jwt.Validate(tok,
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
	); err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}

	id := &Identity{UID: tok.Subject()}
	if email, ok := tok.Get("email"); ok {
		id.Email, _ = email.(string)
	}
	if verified, ok := tok.Get("email_verified"); ok {
		id.EmailVerified, _ = verified.(bool)
	}
	return id, nil
}

// GetJWSFromRequest extracts a JWS string from an Authorization: Bearer <jws> header
func GetJWSFromRequest(req *http.Request) (string, error) {
	authHdr := req.Header.Get("Authorization")
	if authHdr == "" {
		return "", ErrNoAuthHeader
	}
	prefix := "Bearer "
	if !strings.HasPrefix(authHdr, prefix) {
		return "", ErrInvalidAuthHeader
	}
	return strings.TrimPrefix(authHdr, prefix), nil
}

// Authenticate plugs into the OpenAPI request validator: it verifies the
// bearer token and stashes the identity on the gin context for handlers.
func (v *Verifier) Authenticate(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input.SecuritySchemeName != "bearerAuth" {
		return fmt.Errorf("security scheme %s != 'bearerAuth'", input.SecuritySchemeName)
	}

	jws, err := GetJWSFromRequest(input.RequestValidationInput.Request)
	if err != nil {
		return fmt.Errorf("getting jws: %w", err)
	}
	id, err := v.Verify(ctx, jws)
	if err != nil {
		return err
	}

	eCtx := middleware.GetGinContext(ctx)
	eCtx.Set(string(identityKey), id)
	return nil
}

// FromGin returns the identity set by Authenticate for the current request.
func FromGin(c *gin.Context) (*Identity, bool) {
	raw, ok := c.Get(string(identityKey))
	if !ok {
		return nil, false
	}
	id, ok := raw.(*Identity)
	return id, ok
}
