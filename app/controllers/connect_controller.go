package controllers

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/app/repository"
	"github.com/JulianWeber/AgentFlow/internal/pkg/agents"
	"github.com/JulianWeber/AgentFlow/internal/pkg/config"
	"github.com/JulianWeber/AgentFlow/internal/pkg/connect"
	"github.com/JulianWeber/AgentFlow/internal/pkg/constants"
	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
	"github.com/JulianWeber/AgentFlow/internal/pkg/session"
)

// connectExchanger is the slice of the connect client the orchestrator
// needs; tests substitute it.
type connectExchanger interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*connect.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*connect.TokenPair, error)
}

// ConnectController drives the third-party connection flow: it sends
// the user out to the provider and orchestrates the callback.
type ConnectController struct {
	client   connectExchanger
	states   *connect.StateCodec
	conns    repository.ConnectionRepository
	apps     repository.AppRepository
	assigner agents.Assigner
}

var connectController *ConnectController

// appConfig is the validated startup configuration; set once by
// InitializeConnectController.
var appConfig *config.Config

// InitializeConnectController wires the controller with the startup
// configuration and the global repositories.
func InitializeConnectController(cfg *config.Config) {
	appConfig = cfg
	repos := repository.GetGlobalRepositories()
	connectController = &ConnectController{
		client:   connect.NewClient(cfg),
		states:   connect.NewStateCodec(cfg.AppSecret),
		conns:    repos.Connection,
		apps:     repos.App,
		assigner: agents.NewService(repos.Agent),
	}
}

// HandleConnectStart builds the signed state from the hire form and
// redirects the user to the provider's consent page.
func HandleConnectStart(c *fiber.Ctx) error {
	return connectController.start(c)
}

// HandleConnectCallback receives the provider redirect.
func HandleConnectCallback(c *fiber.Ctx) error {
	return connectController.callback(c)
}

// HandleConnectError renders the dedicated error page for failures
// that happen before the user can be identified.
func HandleConnectError(c *fiber.Ctx) error {
	return c.Render("connect_error", fiber.Map{
		"Message": "The connection could not be completed. Please try again.",
	})
}

func (ct *ConnectController) start(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil || sess.Get(USER_ID) == nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	modelID, _ := strconv.ParseUint(c.FormValue("model_id", c.Query("model_id")), 10, 64)
	appID, _ := strconv.ParseUint(c.FormValue("app_id", c.Query("app_id")), 10, 64)
	if appID == 0 {
		// Default to the built-in spreadsheet provider.
		if app, err := ct.apps.GetBySlug(models.APP_SLUG_GOOGLE_SHEETS); err == nil {
			appID = uint64(app.ID)
		}
	}
	if modelID == 0 || appID == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("model and app are required")
	}

	state, err := ct.states.Sign(connect.AuthState{
		ModelID:     uint(modelID),
		AppID:       uint(appID),
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Instruction: c.FormValue("instruction"),
	}, sess.ID())
	if err != nil {
		log.Printf("connect: state signing failed: %v", err)
		return c.Redirect(constants.ConnectError, fiber.StatusSeeOther)
	}

	return c.Redirect(ct.client.AuthCodeURL(state), fiber.StatusSeeOther)
}

// callback walks the single-request state machine:
// code present -> state parsed -> session valid -> tokens exchanged ->
// persisted and assigned -> redirect. Failures after a successful
// exchange still land on the normal destination with a failure flag;
// the user already granted access upstream, so throwing the whole
// round trip away would be the worse outcome.
func (ct *ConnectController) callback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		// No safe place to report this without a session round trip.
		return c.Status(fiber.StatusBadRequest).SendString("missing authorization code")
	}

	sess, sessErr := session.GetSessionStore().Get(c)

	// Absent state is tolerated: the flow is also reachable for pure
	// re-authorization without an agent assignment continuation.
	var st *connect.AuthState
	if raw := c.Query("state"); raw != "" {
		sessionID := ""
		if sessErr == nil {
			sessionID = sess.ID()
		}
		verified, err := ct.states.Verify(raw, sessionID)
		if err != nil {
			log.Printf("connect: state rejected: %v", err)
			return c.Status(fiber.StatusBadRequest).SendString("invalid state")
		}
		st = verified
	}

	userID := sessionUserID(sess, sessErr)
	if userID == 0 {
		return c.Redirect(constants.ConnectError, fiber.StatusSeeOther)
	}

	pair, err := ct.client.ExchangeCode(c.Context(), code)
	if err != nil {
		log.Printf("connect: exchange failed for user %d: %v", userID, err)
		return c.Redirect(constants.ConnectError, fiber.StatusSeeOther)
	}

	var modelID uint
	if st != nil {
		modelID = st.ModelID
	}

	conn, err := ct.persist(userID, st, pair)
	if err != nil {
		log.Printf("connect: persist failed for user %d: %v", userID, err)
		return redirectConnectResult(c, modelID, false, "could not save the connection")
	}

	if st != nil {
		// Assignment strictly after persistence: it needs the
		// connection id as a foreign reference.
		if _, err := ct.assigner.Assign(userID, st.ModelID, conn.ID, st.Name, st.Description, st.Instruction); err != nil {
			log.Printf("connect: assignment failed for user %d: %v", userID, err)
			return redirectConnectResult(c, modelID, false, "connection saved, but the agent could not be assigned")
		}
	}

	return redirectConnectResult(c, modelID, true, "")
}

func (ct *ConnectController) persist(userID uint, st *connect.AuthState, pair *connect.TokenPair) (*repository.ConnectionWithPairs, error) {
	appID := uint(0)
	name := "Google Sheets connection"
	if st != nil {
		appID = st.AppID
		if st.Name != "" {
			name = st.Name
		}
	}
	app, err := ct.resolveApp(appID)
	if err != nil {
		return nil, err
	}

	pairs := []credkey.Pair{{Key: "access_token", Value: pair.AccessToken}}
	if pair.RefreshToken != "" {
		pairs = append(pairs, credkey.Pair{Key: "refresh_token", Value: pair.RefreshToken})
	}
	if pair.ExpiresIn > 0 {
		pairs = append(pairs, credkey.Pair{Key: "expires_in", Value: strconv.FormatInt(pair.ExpiresIn, 10)})
	}

	return ct.conns.Create(userID, app.ID, name, credkey.Encode(pairs))
}

func (ct *ConnectController) resolveApp(appID uint) (*models.App, error) {
	if appID != 0 {
		return ct.apps.GetByID(appID)
	}
	return ct.apps.GetBySlug(models.APP_SLUG_GOOGLE_SHEETS)
}

func sessionUserID(sess sessionGetter, sessErr error) uint {
	if sessErr != nil || sess == nil {
		return 0
	}
	if id, ok := sess.Get(USER_ID).(uint); ok {
		return id
	}
	return 0
}

// sessionGetter is the part of the fiber session the orchestrator
// reads.
type sessionGetter interface {
	Get(key string) interface{}
	ID() string
}

func redirectConnectResult(c *fiber.Ctx, modelID uint, ok bool, errMsg string) error {
	v := url.Values{}
	if modelID != 0 {
		v.Set("model", strconv.FormatUint(uint64(modelID), 10))
	}
	v.Set("oauth_success", strconv.FormatBool(ok))
	if errMsg != "" {
		v.Set("oauth_error", errMsg)
	}
	return c.Redirect(constants.AgentsRoute+"?"+v.Encode(), fiber.StatusSeeOther)
}
