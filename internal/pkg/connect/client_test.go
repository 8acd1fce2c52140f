package connect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/JulianWeber/AgentFlow/internal/pkg/apperrors"
	"github.com/JulianWeber/AgentFlow/internal/pkg/config"
)

func testClient(tokenURL string) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://agentflow.example/connect/google/callback",
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://provider.example/o/oauth2/auth",
				TokenURL: tokenURL,
			},
		},
	}
}

func TestAuthCodeURL_ForcesOfflineConsent(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		SiteOrigin:         "https://agentflow.example",
	}
	raw := NewClient(cfg).AuthCodeURL("opaque-state")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "https://agentflow.example/connect/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, strings.Join(Scopes, " "), q.Get("scope"))
}

func TestExchangeCode_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "one-time-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.new","token_type":"Bearer","refresh_token":"1//refresh","expires_in":3599}`))
	}))
	defer srv.Close()

	pair, err := testClient(srv.URL).ExchangeCode(context.Background(), "one-time-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.new", pair.AccessToken)
	assert.Equal(t, "1//refresh", pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Greater(t, pair.ExpiresIn, int64(0))
}

func TestExchangeCode_ProviderFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)

	var exchangeErr *apperrors.ExchangeError
	assert.True(t, errors.As(err, &exchangeErr))
}

func TestRefresh_OmittedRefreshTokenReportedAbsent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "1//stored", r.FormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.refreshed","token_type":"Bearer","expires_in":3599}`))
	}))
	defer srv.Close()

	pair, err := testClient(srv.URL).Refresh(context.Background(), "1//stored")
	require.NoError(t, err)
	assert.Equal(t, "ya29.refreshed", pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
}

func TestRefresh_RotatedRefreshTokenReturned(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.refreshed","token_type":"Bearer","refresh_token":"1//rotated","expires_in":3599}`))
	}))
	defer srv.Close()

	pair, err := testClient(srv.URL).Refresh(context.Background(), "1//stored")
	require.NoError(t, err)
	assert.Equal(t, "1//rotated", pair.RefreshToken)
}

func TestRefresh_ProviderFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Refresh(context.Background(), "1//revoked")
	require.Error(t, err)

	var refreshErr *apperrors.RefreshError
	assert.True(t, errors.As(err, &refreshErr))
}
