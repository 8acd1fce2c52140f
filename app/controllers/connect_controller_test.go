package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/app/repository"
	"github.com/JulianWeber/AgentFlow/internal/pkg/connect"
	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
	"github.com/JulianWeber/AgentFlow/internal/pkg/session"
)

type fakeExchanger struct {
	exchangePair *connect.TokenPair
	exchangeErr  error
	refreshPair  *connect.TokenPair
	refreshErr   error
	lastCode     string
	lastRefresh  string
}

func (f *fakeExchanger) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code string) (*connect.TokenPair, error) {
	f.lastCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangePair, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, refreshToken string) (*connect.TokenPair, error) {
	f.lastRefresh = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

type fakeConnectionRepo struct {
	conns     map[uint]*repository.ConnectionWithPairs
	nextID    uint
	createErr error
	updateErr error
	creates   int
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: map[uint]*repository.ConnectionWithPairs{}, nextID: 1}
}

func (f *fakeConnectionRepo) seed(userID, appID uint, name, encoded string) *repository.ConnectionWithPairs {
	id := f.nextID
	f.nextID++
	pairs, _ := credkey.DecodeLenient(encoded)
	cwp := &repository.ConnectionWithPairs{
		Connection: models.Connection{
			ID:             id,
			UserID:         userID,
			AppID:          appID,
			ConnectionName: name,
			ConnectionKey:  encoded,
			App:            models.App{ID: appID, Name: "Google Sheets", Slug: models.APP_SLUG_GOOGLE_SHEETS},
		},
		Pairs: pairs,
	}
	f.conns[id] = cwp
	return cwp
}

func (f *fakeConnectionRepo) ListByUserID(userID uint) ([]repository.ConnectionWithPairs, error) {
	var out []repository.ConnectionWithPairs
	for _, c := range f.conns {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConnectionRepo) GetByID(id uint) (*repository.ConnectionWithPairs, error) {
	c, ok := f.conns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnectionRepo) Create(userID, appID uint, name, encodedKey string) (*repository.ConnectionWithPairs, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	return f.seed(userID, appID, name, encodedKey), nil
}

func (f *fakeConnectionRepo) Update(id uint, upd repository.ConnectionUpdate) (*repository.ConnectionWithPairs, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c, ok := f.conns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if upd.Key != nil {
		c.ConnectionKey = *upd.Key
	}
	if upd.SheetTab != nil {
		pairs := credkey.Merge(credkey.Decode(c.ConnectionKey), "sheet_tab", *upd.SheetTab)
		c.ConnectionKey = credkey.Encode(pairs)
	}
	if upd.Name != nil {
		c.ConnectionName = *upd.Name
	}
	if upd.SheetID != nil {
		c.SheetID = *upd.SheetID
	}
	if upd.SheetName != nil {
		c.SheetName = *upd.SheetName
	}
	c.Pairs, _ = credkey.DecodeLenient(c.ConnectionKey)
	cp := *c
	return &cp, nil
}

func (f *fakeConnectionRepo) Delete(id uint) error {
	delete(f.conns, id)
	return nil
}

type fakeAppRepo struct{}

func (fakeAppRepo) GetByID(id uint) (*models.App, error) {
	return &models.App{ID: id, Name: "Google Sheets", Slug: models.APP_SLUG_GOOGLE_SHEETS, IsActive: true}, nil
}

func (fakeAppRepo) GetBySlug(slug string) (*models.App, error) {
	return &models.App{ID: 1, Name: "Google Sheets", Slug: slug, IsActive: true}, nil
}

func (fakeAppRepo) GetActive() ([]models.App, error) {
	return []models.App{{ID: 1, Name: "Google Sheets", Slug: models.APP_SLUG_GOOGLE_SHEETS, IsActive: true}}, nil
}

type fakeAssigner struct {
	err   error
	calls []models.UserAgent
}

func (f *fakeAssigner) Assign(userID, modelID, connectionID uint, name, description, instruction string) (*models.UserAgent, error) {
	if f.err != nil {
		return nil, f.err
	}
	ua := models.UserAgent{
		UserID:       userID,
		AgentModelID: modelID,
		ConnectionID: connectionID,
		Name:         name,
		Description:  description,
		Instruction:  instruction,
	}
	f.calls = append(f.calls, ua)
	return &ua, nil
}

const testStateSecret = "connect-test-secret"

type connectTestEnv struct {
	app      *fiber.App
	ex       *fakeExchanger
	conns    *fakeConnectionRepo
	assigner *fakeAssigner
	states   *connect.StateCodec
}

func newConnectTestEnv(t *testing.T) *connectTestEnv {
	t.Helper()

	session.NewMemorySessionStore()

	env := &connectTestEnv{
		ex: &fakeExchanger{
			exchangePair: &connect.TokenPair{
				AccessToken:  "at-fresh",
				RefreshToken: "rt-fresh",
				ExpiresIn:    3599,
				TokenType:    "Bearer",
			},
		},
		conns:    newFakeConnectionRepo(),
		assigner: &fakeAssigner{},
		states:   connect.NewStateCodec(testStateSecret),
	}

	connectController = &ConnectController{
		client:   env.ex,
		states:   env.states,
		conns:    env.conns,
		apps:     fakeAppRepo{},
		assigner: env.assigner,
	}

	app := fiber.New()
	app.Get("/connect/start", HandleConnectStart)
	app.Post("/connect/start", HandleConnectStart)
	app.Get("/connect/google/callback", HandleConnectCallback)
	app.Post("/test/login", func(c *fiber.Ctx) error {
		sess, err := session.GetSessionStore().Get(c)
		require.NoError(t, err)
		sess.Set(AUTH_KEY, true)
		sess.Set(USER_ID, uint(7))
		sess.Set(USER_NAME, "lena")
		require.NoError(t, sess.Save())
		return c.SendStatus(fiber.StatusNoContent)
	})
	env.app = app
	return env
}

// login performs the test sign-in and returns the session cookie plus
// the session id embedded in it.
func (e *connectTestEnv) login(t *testing.T) (cookie, sid string) {
	t.Helper()

	resp, err := e.app.Test(httptest.NewRequest(http.MethodPost, "/test/login", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	setCookie := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	cookie = strings.Split(setCookie, ";")[0]
	parts := strings.SplitN(cookie, "=", 2)
	require.Len(t, parts, 2)
	return cookie, parts[1]
}

func (e *connectTestEnv) get(t *testing.T, target, cookie string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestConnectCallbackMissingCode(t *testing.T) {
	env := newConnectTestEnv(t)

	resp := env.get(t, "/connect/google/callback", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Zero(t, env.conns.creates)
	assert.Empty(t, env.ex.lastCode)
}

func TestConnectCallbackRejectsTamperedState(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, _ := env.login(t)

	resp := env.get(t, "/connect/google/callback?code=abc&state=not-a-real-state", cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.ex.lastCode, "exchange must not run on a rejected state")
	assert.Zero(t, env.conns.creates)
}

func TestConnectCallbackWithoutSessionRedirectsToError(t *testing.T) {
	env := newConnectTestEnv(t)

	resp := env.get(t, "/connect/google/callback?code=abc", "")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/connect/error", resp.Header.Get("Location"))
	assert.Zero(t, env.conns.creates)
}

func TestConnectCallbackWithoutStateSkipsAssignment(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, _ := env.login(t)

	resp := env.get(t, "/connect/google/callback?code=grant-code", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/agents", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("oauth_success"))
	assert.Empty(t, loc.Query().Get("model"))

	assert.Equal(t, "grant-code", env.ex.lastCode)
	assert.Equal(t, 1, env.conns.creates)
	assert.Empty(t, env.assigner.calls)
}

func TestConnectCallbackFullFlow(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, sid := env.login(t)

	state, err := env.states.Sign(connect.AuthState{
		ModelID:     12,
		AppID:       1,
		Name:        "Sheet writer",
		Description: "keeps the budget sheet current",
		Instruction: "append one row per day",
	}, sid)
	require.NoError(t, err)

	resp := env.get(t, "/connect/google/callback?code=grant-code&state="+url.QueryEscape(state), cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/agents", loc.Path)
	assert.Equal(t, "12", loc.Query().Get("model"))
	assert.Equal(t, "true", loc.Query().Get("oauth_success"))
	assert.Empty(t, loc.Query().Get("oauth_error"))

	require.Equal(t, 1, env.conns.creates)
	conn, err := env.conns.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, uint(7), conn.UserID)
	assert.Equal(t, "Sheet writer", conn.ConnectionName)

	at, ok := credkey.Get(conn.Pairs, "access_token")
	require.True(t, ok)
	assert.Equal(t, "at-fresh", at)
	rt, ok := credkey.Get(conn.Pairs, "refresh_token")
	require.True(t, ok)
	assert.Equal(t, "rt-fresh", rt)
	exp, ok := credkey.Get(conn.Pairs, "expires_in")
	require.True(t, ok)
	assert.Equal(t, "3599", exp)

	require.Len(t, env.assigner.calls, 1)
	ua := env.assigner.calls[0]
	assert.Equal(t, uint(7), ua.UserID)
	assert.Equal(t, uint(12), ua.AgentModelID)
	assert.Equal(t, conn.ID, ua.ConnectionID)
	assert.Equal(t, "append one row per day", ua.Instruction)
}

func TestConnectCallbackStateBoundToForeignSession(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, _ := env.login(t)

	state, err := env.states.Sign(connect.AuthState{ModelID: 12, AppID: 1}, "some-other-session")
	require.NoError(t, err)

	resp := env.get(t, "/connect/google/callback?code=abc&state="+url.QueryEscape(state), cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.conns.creates)
}

func TestConnectCallbackExchangeFailure(t *testing.T) {
	env := newConnectTestEnv(t)
	env.ex.exchangeErr = errors.New("provider said no")
	cookie, _ := env.login(t)

	resp := env.get(t, "/connect/google/callback?code=bad-code", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/connect/error", resp.Header.Get("Location"))
	assert.Zero(t, env.conns.creates)
}

func TestConnectCallbackPersistFailureAfterExchange(t *testing.T) {
	env := newConnectTestEnv(t)
	env.conns.createErr = errors.New("db down")
	cookie, sid := env.login(t)

	state, err := env.states.Sign(connect.AuthState{ModelID: 12, AppID: 1}, sid)
	require.NoError(t, err)

	resp := env.get(t, "/connect/google/callback?code=grant-code&state="+url.QueryEscape(state), cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/agents", loc.Path)
	assert.Equal(t, "12", loc.Query().Get("model"))
	assert.Equal(t, "false", loc.Query().Get("oauth_success"))
	assert.NotEmpty(t, loc.Query().Get("oauth_error"))
	assert.Empty(t, env.assigner.calls, "assignment must not run when persistence failed")
}

func TestConnectCallbackAssignmentFailureKeepsConnection(t *testing.T) {
	env := newConnectTestEnv(t)
	env.assigner.err = errors.New("model retired")
	cookie, sid := env.login(t)

	state, err := env.states.Sign(connect.AuthState{ModelID: 12, AppID: 1}, sid)
	require.NoError(t, err)

	resp := env.get(t, "/connect/google/callback?code=grant-code&state="+url.QueryEscape(state), cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "false", loc.Query().Get("oauth_success"))

	// The credential survives even though the assignment did not.
	assert.Equal(t, 1, env.conns.creates)
}

func TestConnectStartRequiresLogin(t *testing.T) {
	env := newConnectTestEnv(t)

	resp := env.get(t, "/connect/start?model_id=12", "")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestConnectStartRedirectsToProvider(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, sid := env.login(t)

	resp := env.get(t, "/connect/start?model_id=12&name=Sheet+writer", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", loc.Host)

	st, err := env.states.Verify(loc.Query().Get("state"), sid)
	require.NoError(t, err)
	assert.Equal(t, uint(12), st.ModelID)
	assert.Equal(t, "Sheet writer", st.Name)
}

func TestConnectStartRejectsMissingModel(t *testing.T) {
	env := newConnectTestEnv(t)
	cookie, _ := env.login(t)

	resp := env.get(t, "/connect/start", cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
