// Package oauth implements the AuthGateway port against the Zoho and HubSpot
// OAuth 2.0 token endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kmorganti/dealporter/internal/domain/model"
	"github.com/kmorganti/dealporter/internal/domain/port/driven"
)

// Scopes requested during the interactive grant, per service.
const (
	zohoScope    = "ZohoCRM.modules.ALL,ZohoCRM.bulk.ALL,ZohoCRM.Files.READ"
	hubspotScope = "crm.import files crm.objects.deals.read crm.objects.deals.write"
)

// Fallback token lifetimes used when the endpoint omits expires_in.
const (
	zohoDefaultExpiry    = 3600 * time.Second
	hubspotDefaultExpiry = 21600 * time.Second
)

// Compile-time interface satisfaction check.
var _ driven.AuthGateway = (*Gateway)(nil)

// ClientCredentials is the OAuth application id/secret pair for one service.
type ClientCredentials struct {
	ID     string
	Secret string
}

// Gateway performs wire-level OAuth grant exchanges for both services.
type Gateway struct {
	httpClient *http.Client

	zoho        ClientCredentials
	hubspot     ClientCredentials
	redirectURI string

	zohoAccountsBase string // e.g. https://accounts.zoho.in/oauth/v2
	hubspotAPIBase   string // e.g. https://api.hubapi.com
	hubspotAuthURL   string // e.g. https://app.hubspot.com/oauth/authorize
}

// NewGateway creates a Gateway for the given endpoints and app credentials.
func NewGateway(zoho, hubspot ClientCredentials, redirectURI, zohoAccountsBase, hubspotAPIBase, hubspotAuthURL string) *Gateway {
	return &Gateway{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		zoho:             zoho,
		hubspot:          hubspot,
		redirectURI:      redirectURI,
		zohoAccountsBase: strings.TrimRight(zohoAccountsBase, "/"),
		hubspotAPIBase:   strings.TrimRight(hubspotAPIBase, "/"),
		hubspotAuthURL:   hubspotAuthURL,
	}
}

// AuthorizeURL builds the browser authorization URL for the service.
func (g *Gateway) AuthorizeURL(service model.Service, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("redirect_uri", g.redirectURI)

	if service == model.ServiceZoho {
		q.Set("client_id", g.zoho.ID)
		q.Set("scope", zohoScope)
		q.Set("access_type", "offline")
		return g.zohoAccountsBase + "/auth?" + q.Encode()
	}

	q.Set("client_id", g.hubspot.ID)
	q.Set("scope", hubspotScope)
	return g.hubspotAuthURL + "?" + q.Encode()
}

// Refresh exchanges a refresh token for a new TokenSet. Zoho does not rotate
// refresh tokens on this grant, so the input token is carried forward;
// HubSpot returns a replacement.
func (g *Gateway) Refresh(ctx context.Context, service model.Service, refreshToken string) (model.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	g.setClient(form, service)

	tokens, err := g.postToken(ctx, service, form)
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("refresh %s token: %w", service, err)
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

// Exchange trades an authorization code for a TokenSet.
func (g *Gateway) Exchange(ctx context.Context, service model.Service, code string) (model.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", g.redirectURI)
	g.setClient(form, service)

	tokens, err := g.postToken(ctx, service, form)
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("exchange %s code: %w", service, err)
	}
	return tokens, nil
}

func (g *Gateway) setClient(form url.Values, service model.Service) {
	creds := g.zoho
	if service == model.ServiceHubSpot {
		creds = g.hubspot
	}
	form.Set("client_id", creds.ID)
	form.Set("client_secret", creds.Secret)
}

func (g *Gateway) tokenURL(service model.Service) string {
	if service == model.ServiceZoho {
		return g.zohoAccountsBase + "/token"
	}
	return g.hubspotAPIBase + "/oauth/v1/token"
}

// tokenResponse is the wire shape of both services' token endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (g *Gateway) postToken(ctx context.Context, service model.Service, form url.Values) (model.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL(service), strings.NewReader(form.Encode()))
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return model.TokenSet{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.TokenSet{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return model.TokenSet{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return model.TokenSet{}, fmt.Errorf("token endpoint returned no access token")
	}

	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if tr.ExpiresIn == 0 {
		expiresIn = zohoDefaultExpiry
		if service == model.ServiceHubSpot {
			expiresIn = hubspotDefaultExpiry
		}
	}

	return model.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(expiresIn),
	}, nil
}
