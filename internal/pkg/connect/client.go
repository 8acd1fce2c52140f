// Package connect implements the third-party connection flow against
// the external provider: authorization URL construction, the
// code-for-token exchange and the refresh exchange, plus the signed
// state payload threaded through the provider redirect.
package connect

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/JulianWeber/AgentFlow/internal/pkg/apperrors"
	"github.com/JulianWeber/AgentFlow/internal/pkg/config"
)

// Scopes requested on every authorization. The set is fixed; changing
// it requires users to reconnect.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.email",
}

// TokenPair is the provider's token response. RefreshToken and
// ExpiresIn may be empty; a refresh exchange in particular is allowed
// to omit the refresh token, in which case the caller must keep the
// previously stored one.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	TokenType    string
}

// Client performs all direct interaction with the provider's OAuth
// endpoints.
type Client struct {
	conf *oauth2.Config
}

// NewClient builds a client from the startup configuration. The
// redirect URI is derived from the configured site origin and must
// exactly match what is registered with the provider.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.CallbackURL(),
			Scopes:       Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
	}
}

// AuthCodeURL returns the outbound authorization URL. Offline access
// and the consent prompt are forced on every call so a refresh token
// is issued even for a previously consented user. The caller-supplied
// state is echoed verbatim.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades a one-time authorization code for tokens. It is
// a single blocking attempt; network failures, non-2xx responses and
// malformed bodies are all reported as one ExchangeError since none is
// recoverable without the user re-initiating the flow.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, &apperrors.ExchangeError{Err: err}
	}
	return tokenPairFrom(tok), nil
}

// Refresh trades a stored refresh token for a fresh access token. The
// provider may omit the refresh token in its response; callers must
// then retain the one they already hold. Failures are RefreshError so
// callers can surface "reconnect" rather than "the grant failed".
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	src := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &apperrors.RefreshError{Err: err}
	}
	pair := tokenPairFrom(tok)
	// The oauth2 token source copies the old refresh token into the
	// response when the provider omits one; report that as absent so
	// the caller's keep-previous rule stays observable.
	if pair.RefreshToken == refreshToken {
		pair.RefreshToken = ""
	}
	return pair, nil
}

func tokenPairFrom(tok *oauth2.Token) *TokenPair {
	pair := &TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		if secs := int64(time.Until(tok.Expiry).Seconds()); secs > 0 {
			pair.ExpiresIn = secs
		}
	}
	return pair
}
