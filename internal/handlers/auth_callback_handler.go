package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/apierr"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/oidc"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/respond"
)

type AuthCallbackHandler struct {
	verifier     oidc.Verifier
	httpClient   *http.Client
	discoveryURL string
	clientID     string
	clientSecret string
	redirectURL  string
	log          *logger.Logger
}

func NewAuthCallbackHandler(verifier oidc.Verifier, httpClient *http.Client, discoveryURL, clientID, clientSecret, redirectURL string, log *logger.Logger) *AuthCallbackHandler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AuthCallbackHandler{
		verifier:     verifier,
		httpClient:   httpClient,
		discoveryURL: discoveryURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		log:          log.With("handler", "AuthCallbackHandler"),
	}
}

type oidcDiscoveryDoc struct {
	TokenEndpoint string `json:"token_endpoint"`
}

type tokenResponse struct {
	IDToken string `json:"id_token"`
}

// Run implements spec §6.3: exchange the authorization code for an
// id_token, verify it, and set the session cookie the rest of the
// service reads on every subsequent request.
func (h *AuthCallbackHandler) Run(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		respond.Error(c, requestID(c), apierr.New(http.StatusBadRequest, "missing_code", fmt.Errorf("missing code")))
		return
	}

	ctx := c.Request.Context()
	tokenEndpoint, err := h.fetchTokenEndpoint(ctx)
	if err != nil {
		respond.Error(c, requestID(c), apierr.New(http.StatusInternalServerError, "internal_error", err))
		return
	}

	idToken, err := h.exchangeCode(ctx, tokenEndpoint, code)
	if err != nil {
		respond.Error(c, requestID(c), apierr.New(http.StatusUnauthorized, "auth_invalid", fmt.Errorf("Invalid authentication token")))
		return
	}

	claims, err := h.verifier.Verify(ctx, idToken)
	if err != nil {
		respond.Error(c, requestID(c), apierr.New(http.StatusUnauthorized, "auth_invalid", fmt.Errorf("Invalid authentication token")))
		return
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		respond.Error(c, requestID(c), apierr.New(http.StatusUnauthorized, "auth_invalid", fmt.Errorf("Invalid authentication token")))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("session", idToken, 0, "/", "", true, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthCallbackHandler) fetchTokenEndpoint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.discoveryURL, nil)
	if err != nil {
		return "", err
	}
	res, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oidc discovery request: %w", err)
	}
	defer res.Body.Close()

	var doc oidcDiscoveryDoc
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if strings.TrimSpace(doc.TokenEndpoint) == "" {
		return "", fmt.Errorf("discovery document missing token_endpoint")
	}
	return doc.TokenEndpoint, nil
}

func (h *AuthCallbackHandler) exchangeCode(ctx context.Context, tokenEndpoint, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {h.clientID},
		"client_secret": {h.clientSecret},
		"redirect_uri":  {h.redirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange failed: %s", res.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.IDToken == "" {
		return "", fmt.Errorf("token response missing id_token")
	}
	return tok.IDToken, nil
}
