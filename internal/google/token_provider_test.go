package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCredentials() Credentials {
	return Credentials{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func TestCredentialsMissing(t *testing.T) {
	assert.Empty(t, validCredentials().Missing())

	creds := validCredentials()
	creds.AccessToken = ""
	creds.ClientSecret = "  "
	assert.Equal(t, []string{"GOOGLE_ACCESS_TOKEN", "GOOGLE_CLIENT_SECRET"}, creds.Missing())

	assert.Len(t, Credentials{}.Missing(), 4)
}

func TestNewCredentialsTokenProvider_Incomplete(t *testing.T) {
	creds := validCredentials()
	creds.RefreshToken = ""

	provider, err := NewCredentialsTokenProvider(creds, nil)
	require.Error(t, err)
	assert.Nil(t, provider)
	assert.ErrorIs(t, err, ErrCredentialsNotConfigured)
	assert.Contains(t, err.Error(), "GOOGLE_REFRESH_TOKEN")
}

func TestOAuthConfig(t *testing.T) {
	provider, err := NewCredentialsTokenProvider(validCredentials(), nil)
	require.NoError(t, err)

	conf := provider.OAuthConfig()
	assert.Equal(t, "client-id", conf.ClientID)
	assert.Equal(t, "client-secret", conf.ClientSecret)
	assert.Equal(t, []string{CalendarScope}, conf.Scopes)
	assert.Equal(t, "https://oauth2.googleapis.com/token", conf.Endpoint.TokenURL)

	creds := validCredentials()
	creds.TokenURL = "http://localhost:9999/token"
	provider, err = NewCredentialsTokenProvider(creds, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/token", provider.OAuthConfig().Endpoint.TokenURL)
}

func TestTokenSource_RefreshesOnFirstUse(t *testing.T) {
	var gotRefresh, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotRefresh = r.PostForm.Get("refresh_token")
		gotClientID = r.PostForm.Get("client_id")
		if gotClientID == "" {
			gotClientID, _, _ = r.BasicAuth()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	creds := validCredentials()
	creds.TokenURL = srv.URL
	provider, err := NewCredentialsTokenProvider(creds, nil)
	require.NoError(t, err)

	ts, err := provider.TokenSource(context.Background())
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)
	assert.Equal(t, "refresh-token", gotRefresh)
	assert.Equal(t, "client-id", gotClientID)
}

func TestTokenSource_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	creds := validCredentials()
	creds.TokenURL = srv.URL
	provider, err := NewCredentialsTokenProvider(creds, nil)
	require.NoError(t, err)

	ts, err := provider.TokenSource(context.Background())
	require.NoError(t, err)

	_, err = ts.Token()
	assert.Error(t, err)
}
