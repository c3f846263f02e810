package auth

import (
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/context"
)

const identityToolkitBase = "https://identitytoolkit.googleapis.com/v1"

// restClient wraps the Identity Toolkit REST surface. The Admin SDK cannot
// perform password sign-in, so these flows go through the same endpoints
// the mobile SDKs use.
type restClient struct {
	http   *resty.Client
	apiKey string
}

func newRestClient(client *resty.Client, apiKey string) *restClient {
	return &restClient{
		http:   client,
		apiKey: apiKey,
	}
}

func (c *restClient) post(ctx context.Context, endpoint string, body any, result any) error {
	responseError := &RestError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(responseError).
		Post(fmt.Sprintf("%s/%s", identityToolkitBase, endpoint))
	if err != nil {
		return fmt.Errorf("identitytoolkit %s: %w", endpoint, err)
	}
	if resp.IsError() {
		return responseError
	}
	return nil
}

func (c *restClient) signInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	id := &Identity{}
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, id)
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (c *restClient) signUp(ctx context.Context, email, password string) (*Identity, error) {
	id := &Identity{}
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, id)
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (c *restClient) signInWithIdp(ctx context.Context, googleIDToken string) (*Identity, error) {
	result := &signInWithIdpResponse{}
	postBody := url.Values{
		"id_token":   []string{googleIDToken},
		"providerId": []string{"google.com"},
	}
	err := c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, result)
	if err != nil {
		return nil, err
	}
	return &result.Identity, nil
}

func (c *restClient) sendVerificationEmail(ctx context.Context, idToken string) error {
	return c.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, &struct{}{})
}

func (c *restClient) lookup(ctx context.Context, idToken string) (*Account, error) {
	result := &lookupResponse{}
	err := c.post(ctx, "accounts:lookup", map[string]any{
		"idToken": idToken,
	}, result)
	if err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return nil, fmt.Errorf("no account for token")
	}
	return &result.Users[0], nil
}
