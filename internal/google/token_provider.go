package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/apptdesk/internal/logging"
)

// TokenProvider is an interface for providing OAuth token sources for Google APIs
type TokenProvider interface {
	// TokenSource returns a token source usable by an authenticated HTTP client
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// Credentials holds the OAuth material for one Google account.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Google token endpoint when set.
	TokenURL string
}

// Missing returns the environment variable names of the credentials that are unset.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.AccessToken) == "" {
		missing = append(missing, "GOOGLE_ACCESS_TOKEN")
	}
	if strings.TrimSpace(c.RefreshToken) == "" {
		missing = append(missing, "GOOGLE_REFRESH_TOKEN")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	return missing
}

// ErrCredentialsNotConfigured is returned when the Google credentials are incomplete.
var ErrCredentialsNotConfigured = fmt.Errorf("google calendar credentials not configured")

// CredentialsTokenProvider provides tokens from configured credentials.
type CredentialsTokenProvider struct {
	creds  Credentials
	logger *slog.Logger
}

// NewCredentialsTokenProvider validates creds and returns a provider for them.
func NewCredentialsTokenProvider(creds Credentials, logger *slog.Logger) (*CredentialsTokenProvider, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrCredentialsNotConfigured, strings.Join(missing, ", "))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialsTokenProvider{creds: creds, logger: logger}, nil
}

// OAuthConfig returns the OAuth2 client configuration for the credentials.
func (p *CredentialsTokenProvider) OAuthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if p.creds.TokenURL != "" {
		endpoint.TokenURL = p.creds.TokenURL
	}
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       DefaultOAuthScopes,
	}
}

// TokenSource returns a refreshing token source. The configured access token
// is marked expired so the first request obtains a fresh one.
func (p *CredentialsTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	p.logger.Debug("building google token source",
		slog.String("access_token", logging.SanitizeToken(p.creds.AccessToken)),
		slog.String("token_url", p.OAuthConfig().Endpoint.TokenURL))

	return p.OAuthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  p.creds.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: p.creds.RefreshToken,
		Expiry:       time.Unix(1, 0),
	}), nil
}
