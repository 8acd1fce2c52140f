package constants

// Static route constants
const (
	PublicRoute  = "/"
	AgentsRoute  = "/agents"
	ConnectStart = "/connect/start"
	// Google redirects here after the consent screen.
	ConnectCallback = "/connect/google/callback"
	ConnectError    = "/connect/error"
)
